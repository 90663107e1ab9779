package hasher

import "github.com/danthegoodman1/idhash/batch"

// IDHash computes the fingerprint of batches in one call. It is the same as
// New, WriteBatches with Add, then Finalize.
func IDHash(batches []batch.Batch, fieldNames, fieldTypes []string, opts ...Option) (Fingerprint, error) {
	h, err := New(fieldNames, fieldTypes, opts...)
	if err != nil {
		return Fingerprint{}, err
	}
	if err := h.WriteBatches(batches, Add); err != nil {
		return Fingerprint{}, err
	}
	return h.Finalize(), nil
}
