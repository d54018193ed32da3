package metadata

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// testClock is a hand-advanced clock for heartbeat expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, clock *testClock) *Service {
	t.Helper()
	svc := New(Config{Now: clock.Now, RemoveTimeout: 2 * time.Second})
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func register(t *testing.T, svc *Service, addr string, chunks uint64) {
	t.Helper()
	resp, err := svc.RegisterNode(context.Background(), &rpcwire.NodeInfo{Address: addr, ChunkCount: chunks})
	if err != nil {
		t.Fatalf("register %s: %v", addr, err)
	}
	if !resp.Success {
		t.Fatalf("register %s: not successful", addr)
	}
}

func primaries(plan *rpcwire.FileLocationResponse) []string {
	out := make([]string, 0, len(plan.Locations))
	for _, loc := range plan.Locations {
		out = append(out, loc.PrimaryNodeID)
	}
	return out
}

func TestGetWritePlanLeastLoadedPlacement(t *testing.T) {
	// Three nodes with counts {a:0, b:5, c:2}: a 3 MiB file must get
	// primaries a, c, b (sorted ascending by load, rotated each chunk).
	svc := newTestService(t, newTestClock())
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 5)
	register(t, svc, "c:1", 2)

	plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 3 * bigfs.ChunkSize})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []string{"a:1", "c:1", "b:1"}
	got := primaries(plan)
	if len(got) != 3 {
		t.Fatalf("plan: want 3 chunks, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d primary: want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestGetWritePlanRotation(t *testing.T) {
	// Four equally loaded nodes, four chunks: each chunk gets a different
	// primary, never the same node twice in a row.
	svc := newTestService(t, newTestClock())
	for _, addr := range []string{"a:1", "b:1", "c:1", "d:1"} {
		register(t, svc, addr, 0)
	}

	plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 4 * bigfs.ChunkSize})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	got := primaries(plan)
	if len(got) != 4 {
		t.Fatalf("plan: want 4 chunks, got %d", len(got))
	}
	seen := make(map[string]bool)
	for i, p := range got {
		if seen[p] {
			t.Errorf("primary %s appears twice", p)
		}
		seen[p] = true
		if i > 0 && got[i-1] == p {
			t.Errorf("chunks %d and %d share primary %s", i-1, i, p)
		}
	}
}

func TestGetWritePlanInvariants(t *testing.T) {
	svc := newTestService(t, newTestClock())
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 1)
	register(t, svc, "c:1", 2)
	register(t, svc, "d:1", 3)

	cases := []struct {
		size       uint64
		wantChunks int
	}{
		{0, 1},
		{1, 1},
		{bigfs.ChunkSize, 1},
		{bigfs.ChunkSize + 1, 2},
		{5*bigfs.ChunkSize + 7, 6},
	}
	for _, c := range cases {
		plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: c.size})
		if err != nil {
			t.Fatalf("plan size %d: %v", c.size, err)
		}
		if len(plan.Locations) != c.wantChunks {
			t.Errorf("size %d: want %d chunks, got %d", c.size, c.wantChunks, len(plan.Locations))
		}
		ids := make(map[string]bool)
		for i, loc := range plan.Locations {
			if loc.ChunkIndex != uint32(i) {
				t.Errorf("size %d: chunk %d has index %d", c.size, i, loc.ChunkIndex)
			}
			if ids[loc.ChunkID] {
				t.Errorf("size %d: duplicate chunk id %s", c.size, loc.ChunkID)
			}
			ids[loc.ChunkID] = true
			if len(loc.ReplicaNodeIDs) != bigfs.ReplicationFactor-1 {
				t.Errorf("size %d: chunk %d has %d replicas", c.size, i, len(loc.ReplicaNodeIDs))
			}
			for _, r := range loc.ReplicaNodeIDs {
				if r == loc.PrimaryNodeID {
					t.Errorf("size %d: chunk %d primary %s also a replica", c.size, i, loc.PrimaryNodeID)
				}
			}
		}
	}
}

func TestGetWritePlanInsufficientNodes(t *testing.T) {
	svc := newTestService(t, newTestClock())
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 0)

	_, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 1})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("want Unavailable, got %v", err)
	}

	// No plan may be recorded on failure.
	if _, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "f"}); status.Code(err) != codes.NotFound {
		t.Errorf("want NotFound after failed plan, got %v", err)
	}
}

func TestHeartbeatExpiryRemovesPlacementCandidate(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, clock)
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 0)
	register(t, svc, "c:1", 0)

	// All three fresh: planning works.
	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f1", Size: 1}); err != nil {
		t.Fatalf("plan with fresh nodes: %v", err)
	}

	// Let a's heartbeat lapse while b and c refresh.
	clock.Advance(bigfs.HeartbeatTimeout + time.Second)
	register(t, svc, "b:1", 0)
	register(t, svc, "c:1", 0)

	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f2", Size: 1}); status.Code(err) != codes.Unavailable {
		t.Fatalf("want Unavailable with expired node, got %v", err)
	}

	// A refreshed heartbeat re-admits the node.
	register(t, svc, "a:1", 0)
	plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f3", Size: 1})
	if err != nil {
		t.Fatalf("plan after refresh: %v", err)
	}
	if len(plan.Locations) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(plan.Locations))
	}
}

func TestSweepEvictsDeadNodes(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, clock)
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 0)

	clock.Advance(bigfs.HeartbeatTimeout + time.Second)
	register(t, svc, "b:1", 0)
	svc.sweep()

	svc.mu.Lock()
	_, aKnown := svc.nodes["a:1"]
	_, bKnown := svc.nodes["b:1"]
	svc.mu.Unlock()
	if aKnown {
		t.Error("expired node a:1 survived the sweep")
	}
	if !bKnown {
		t.Error("fresh node b:1 was evicted")
	}
}

func TestGetFileLocationFailoverPromotesReplica(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, clock)
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 1)
	register(t, svc, "c:1", 2)

	plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 1})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Locations[0].PrimaryNodeID != "a:1" {
		t.Fatalf("expected a:1 as planned primary, got %s", plan.Locations[0].PrimaryNodeID)
	}

	// Kill a (no heartbeat past the timeout) while b and c stay live.
	clock.Advance(bigfs.HeartbeatTimeout + time.Second)
	register(t, svc, "b:1", 1)
	register(t, svc, "c:1", 2)

	loc, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "f"})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	promoted := loc.Locations[0].PrimaryNodeID
	if promoted != "b:1" && promoted != "c:1" {
		t.Fatalf("promoted primary: got %s", promoted)
	}
	for _, r := range loc.Locations[0].ReplicaNodeIDs {
		if r == "a:1" {
			t.Error("dead node still listed as replica after promotion")
		}
		if r == promoted {
			t.Error("promoted node still listed as replica")
		}
	}

	// The promotion is persistent: a second read returns the same primary,
	// even after the original primary comes back.
	register(t, svc, "a:1", 0)
	again, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "f"})
	if err != nil {
		t.Fatalf("second locate: %v", err)
	}
	if again.Locations[0].PrimaryNodeID != promoted {
		t.Errorf("promotion did not stick: %s then %s", promoted, again.Locations[0].PrimaryNodeID)
	}
}

func TestGetFileLocationAllReplicasDead(t *testing.T) {
	clock := newTestClock()
	svc := newTestService(t, clock)
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 0)
	register(t, svc, "c:1", 0)

	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 1}); err != nil {
		t.Fatalf("plan: %v", err)
	}

	clock.Advance(bigfs.HeartbeatTimeout + time.Second)
	if _, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "f"}); status.Code(err) != codes.Unavailable {
		t.Fatalf("want Unavailable with whole cluster dead, got %v", err)
	}
}

func TestGetFileLocationUnknownFile(t *testing.T) {
	svc := newTestService(t, newTestClock())
	if _, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "nope"}); status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestListFilesSizeFormula(t *testing.T) {
	svc := newTestService(t, newTestClock())
	register(t, svc, "a:1", 0)
	register(t, svc, "b:1", 0)
	register(t, svc, "c:1", 0)

	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "three", Size: 3 * bigfs.ChunkSize}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "one", Size: 10}); err != nil {
		t.Fatalf("plan: %v", err)
	}

	resp, err := svc.ListFiles(context.Background(), &rpcwire.PathRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sizes := make(map[string]uint64)
	for _, f := range resp.Files {
		sizes[f.Filename] = f.Size
	}
	// Reported size is the (n-1)*C+1 approximation, kept for client
	// compatibility.
	if got, want := sizes["three"], uint64(2*bigfs.ChunkSize+1); got != want {
		t.Errorf("three: want %d, got %d", want, got)
	}
	if got, want := sizes["one"], uint64(1); got != want {
		t.Errorf("one: want %d, got %d", want, got)
	}
}

// stubStorage is a storage node recording RemoveChunk calls.
type stubStorage struct {
	mu      sync.Mutex
	removed []string
}

func (s *stubStorage) StoreChunk(ctx context.Context, in *rpcwire.Chunk) (*rpcwire.SimpleResponse, error) {
	return &rpcwire.SimpleResponse{Success: true}, nil
}

func (s *stubStorage) RetrieveChunk(ctx context.Context, in *rpcwire.ChunkRequest) (*rpcwire.Chunk, error) {
	return nil, status.Error(codes.NotFound, "stub holds nothing")
}

func (s *stubStorage) RemoveChunk(ctx context.Context, in *rpcwire.ChunkRequest) (*rpcwire.SimpleResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, in.ChunkID)
	return &rpcwire.SimpleResponse{Success: true, Message: "removed"}, nil
}

func serveStub(t *testing.T, stub *stubStorage) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	rpcwire.RegisterStorageServiceServer(srv, stub)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestRemoveFileSkipsDeadNodes(t *testing.T) {
	// Plan across two live stub nodes and one node that dies before the
	// delete: the dead node is skipped, every chunk still reports removed.
	clock := newTestClock()
	svc := newTestService(t, clock)

	stubA, stubB := &stubStorage{}, &stubStorage{}
	addrA, addrB := serveStub(t, stubA), serveStub(t, stubB)
	deadAddr := "127.0.0.1:1"

	register(t, svc, addrA, 0)
	register(t, svc, addrB, 0)
	register(t, svc, deadAddr, 0)

	plan, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 2 * bigfs.ChunkSize})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// The dead node stops heartbeating; the stubs refresh.
	clock.Advance(bigfs.HeartbeatTimeout + time.Second)
	register(t, svc, addrA, 0)
	register(t, svc, addrB, 0)

	resp, err := svc.RemoveFile(context.Background(), &rpcwire.FileRequest{Filename: "f"})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !resp.Success {
		t.Errorf("remove: success=false: %s", resp.Message)
	}
	if len(resp.RemovedChunks) != len(plan.Locations) {
		t.Errorf("removed chunks: want %d, got %d", len(plan.Locations), len(resp.RemovedChunks))
	}
	if len(resp.FailedChunks) != 0 {
		t.Errorf("failed chunks: want none, got %v", resp.FailedChunks)
	}

	// The file is gone from the namespace.
	if _, err := svc.GetFileLocation(context.Background(), &rpcwire.FileRequest{Filename: "f"}); status.Code(err) != codes.NotFound {
		t.Errorf("want NotFound after remove, got %v", err)
	}
	list, err := svc.ListFiles(context.Background(), &rpcwire.PathRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, f := range list.Files {
		if f.Filename == "f" {
			t.Error("removed file still listed")
		}
	}
}

func TestRemoveFileUnknownFile(t *testing.T) {
	svc := newTestService(t, newTestClock())
	if _, err := svc.RemoveFile(context.Background(), &rpcwire.FileRequest{Filename: "nope"}); status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestRemoveFileDecrementsChunkCounts(t *testing.T) {
	svc := newTestService(t, newTestClock())

	stub := &stubStorage{}
	addr := serveStub(t, stub)
	register(t, svc, addr, 5)
	register(t, svc, "127.0.0.1:2", 100)
	register(t, svc, "127.0.0.1:3", 100)

	// One-chunk file: the stub is least loaded, so it becomes primary.
	if _, err := svc.GetWritePlan(context.Background(), &rpcwire.FileRequest{Filename: "f", Size: 1}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if _, err := svc.RemoveFile(context.Background(), &rpcwire.FileRequest{Filename: "f"}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	svc.mu.Lock()
	count := svc.nodes[bigfs.NodeAddress(addr)].ChunkCount
	svc.mu.Unlock()
	if count != 4 {
		t.Errorf("chunk count after delete: want 4, got %d", count)
	}
}
