package main

import (
	"context"
	"testing"

	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

type noopTx struct{}

func (noopTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestCheckConsistency(t *testing.T) {
	tests := []struct {
		name    string
		mode    review.ConsistencyMode
		tx      review.TxRunner
		wantErr bool
	}{
		{"relaxed", review.ConsistencyRelaxed, nil, false},
		{"transactional with runner", review.ConsistencyTransactional, noopTx{}, false},
		{"transactional without runner", review.ConsistencyTransactional, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies := review.NewMovieManager(nil, nil, nil, review.WithConsistency(tt.mode, tt.tx))
			err := checkConsistency(tt.mode, movies)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkConsistency() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
