package store

import (
	"context"
	"time"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Artifact kinds recorded in the catalog.
const (
	KindSlice   = "slice"
	KindCross   = "cross"
	KindProfile = "profile"
	KindDiff    = "diff"
)

// Artifact is one catalogued cache artifact.
type Artifact struct {
	ID        string         `json:"id"`
	Base      string         `json:"base"`
	Kind      string         `json:"kind"`
	Model     string         `json:"model"`
	Property  string         `json:"property"`
	NumX      int            `json:"num_x"`
	NumY      int            `json:"num_y"`
	Min       model.Optional `json:"min"`
	Max       model.Optional `json:"max"`
	Mean      model.Optional `json:"mean"`
	CreatedAt time.Time      `json:"created_at"`
}

// ArtifactFilter specifies criteria for listing artifacts.
type ArtifactFilter struct {
	Kind   string `json:"kind,omitempty"`
	Model  string `json:"model,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store indexes the artifacts written by the cache codec.
type Store interface {
	// RecordArtifact inserts a, replacing any earlier row for the same base.
	RecordArtifact(ctx context.Context, a Artifact) (*Artifact, error)
	GetArtifact(ctx context.Context, id string) (*Artifact, error)
	FindArtifact(ctx context.Context, base string) (*Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]Artifact, error)
	DeleteArtifact(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
