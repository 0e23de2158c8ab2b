package interfaces

import (
	"context"

	"github.com/kheops-client/kheops/pkg/domain/model"
)

// TableWriter persists a listing as a table file
type TableWriter interface {
	// WriteTable writes the listing into dir and returns the created file path
	WriteTable(ctx context.Context, dir, label string, listing *model.Listing) (string, error)
}
