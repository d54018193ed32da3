package bigfs

import "testing"

func TestNumChunks(t *testing.T) {
	cases := []struct {
		size uint64
		want int
	}{
		{0, 1},
		{1, 1},
		{ChunkSize, 1},
		{ChunkSize + 1, 2},
		{3 * ChunkSize, 3},
		{3*ChunkSize + 1, 4},
	}
	for _, c := range cases {
		if got := NumChunks(c.size); got != c.want {
			t.Errorf("NumChunks(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestApproxSize(t *testing.T) {
	p := FilePlan{}
	if got := p.ApproxSize(); got != 0 {
		t.Errorf("empty plan ApproxSize() = %d, want 0", got)
	}
	p.Chunks = make([]ChunkLocation, 3)
	want := uint64(2*ChunkSize + 1)
	if got := p.ApproxSize(); got != want {
		t.Errorf("ApproxSize() = %d, want %d", got, want)
	}
}

func TestNewChunkIDUnique(t *testing.T) {
	seen := make(map[ChunkID]bool)
	for i := 0; i < 100; i++ {
		id := NewChunkID("f", 0)
		if seen[id] {
			t.Fatalf("duplicate chunk id minted: %s", id)
		}
		seen[id] = true
	}
}
