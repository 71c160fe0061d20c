// Package reconcile keeps the remote cart in step with the local one across
// session transitions. It decides what to do on first sign-in by comparing
// the two carts, then debounces full-replacement pushes for later changes.
package reconcile

import (
	"cartsync/internal/model"
)

// LineDiff describes how the remote cart differs from the local cart,
// matching lines by (productId, size).
type LineDiff struct {
	ToAdd    []model.RemoteLine // Local lines missing remotely
	ToRemove []model.RemoteLine // Remote lines missing locally
	ToUpdate []QtyChange        // Lines on both sides with different qty
}

// QtyChange is a line present on both sides with differing quantity.
type QtyChange struct {
	ProductID string
	Size      string
	RemoteQty int
	LocalQty  int
}

// IsEmpty returns true if the two carts hold the same lines and quantities.
func (d *LineDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// Diff computes the changes that would turn remote into local.
// Local lines that share (productId, size) but differ in customization are
// summed, since the remote cart cannot tell them apart.
func Diff(local []model.CartLine, remote []model.RemoteLine) *LineDiff {
	diff := &LineDiff{}

	localByKey := make(map[lineKey]model.RemoteLine)
	var localOrder []lineKey
	for _, l := range model.ToRemoteLines(local) {
		key := itemKey(l.ProductID, l.Size)
		if existing, ok := localByKey[key]; ok {
			existing.Qty += l.Qty
			localByKey[key] = existing
			continue
		}
		localByKey[key] = l
		localOrder = append(localOrder, key)
	}

	remoteByKey := make(map[lineKey]model.RemoteLine)
	var remoteOrder []lineKey
	for _, r := range remote {
		key := itemKey(r.ProductID, r.Size)
		if existing, ok := remoteByKey[key]; ok {
			existing.Qty += r.Qty
			remoteByKey[key] = existing
			continue
		}
		remoteByKey[key] = r
		remoteOrder = append(remoteOrder, key)
	}

	for _, key := range localOrder {
		l := localByKey[key]
		r, exists := remoteByKey[key]
		if !exists {
			diff.ToAdd = append(diff.ToAdd, l)
			continue
		}
		if r.Qty != l.Qty {
			diff.ToUpdate = append(diff.ToUpdate, QtyChange{
				ProductID: l.ProductID,
				Size:      l.Size,
				RemoteQty: r.Qty,
				LocalQty:  l.Qty,
			})
		}
	}

	for _, key := range remoteOrder {
		if _, exists := localByKey[key]; !exists {
			diff.ToRemove = append(diff.ToRemove, remoteByKey[key])
		}
	}

	return diff
}

// Equal reports whether the local and remote carts match closely enough that
// no write is needed on sign-in: the same number of lines, and every local
// line has a remote line with the same productId, size and qty.
func Equal(local []model.CartLine, remote []model.RemoteLine) bool {
	if len(local) != len(remote) {
		return false
	}

	type lineQty struct {
		key lineKey
		qty int
	}
	remoteSet := make(map[lineQty]bool, len(remote))
	for _, r := range remote {
		remoteSet[lineQty{itemKey(r.ProductID, r.Size), r.Qty}] = true
	}

	for _, l := range local {
		if !remoteSet[lineQty{itemKey(l.ProductID, l.Size), l.Qty}] {
			return false
		}
	}
	return true
}

// lineKey matches lines across the local and remote carts.
type lineKey struct {
	productID string
	size      string
}

func itemKey(productID, size string) lineKey {
	return lineKey{productID: productID, size: size}
}
