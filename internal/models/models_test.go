package models

import "testing"

func TestJobProgress(t *testing.T) {
	j := &IngestionJob{}
	if got := j.Progress(); got != 0 {
		t.Fatalf("progress before total known should be 0, got %f", got)
	}

	j.TotalChunks = 40
	j.ChunksDone = 10
	if got := j.Progress(); got != 0.25 {
		t.Fatalf("expected 0.25, got %f", got)
	}

	j.ChunksDone = 40
	if got := j.Progress(); got != 1 {
		t.Fatalf("expected 1, got %f", got)
	}
}
