// Package upload sends encoded still images to the remote image-hosting
// collaborator. The core treats the service as opaque: store bytes under an
// identifier, get back a URL.
package upload

import "context"

// Uploader is the contract for the remote image store.
//
// Upload is a single blocking round trip; callers must not assume anything
// about completion time and should bound it with the context.
type Uploader interface {
	// Upload stores data under publicID inside folder and returns the
	// resulting resource URL.
	Upload(ctx context.Context, data []byte, publicID, folder string) (string, error)
}
