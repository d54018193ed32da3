// Package rpcwire defines the wire protocol shared by the gateway, metadata
// and storage services: the message set, the msgpack codec, hand-assembled
// gRPC service descriptors for all three services, a shared peer connection
// pool, and the bounded-worker-pool server interceptors.
//
// Messages are plain structs encoded with msgpack. The service descriptors
// follow the same shape generated gRPC bindings use, so handlers and client
// stubs look and behave like any other gRPC service.
package rpcwire

// FileMetadata carries the destination path for an upload. It is the payload
// of the first message on an UploadFile stream.
type FileMetadata struct {
	RemotePath string `msgpack:"remote_path"`
}

// ChunkUploadRequest is one message of the client-stream to the gateway's
// UploadFile. Exactly one of Metadata or Data is set: the first message
// carries Metadata, every subsequent message carries Data.
type ChunkUploadRequest struct {
	Metadata *FileMetadata `msgpack:"metadata,omitempty"`
	Data     []byte        `msgpack:"data,omitempty"`
}

// FileRequest names a file, optionally with its byte size (used by
// GetWritePlan to size the plan).
type FileRequest struct {
	Filename string `msgpack:"filename"`
	Size     uint64 `msgpack:"size"`
}

// PathRequest carries a path filter for ListFiles.
type PathRequest struct {
	Path string `msgpack:"path"`
}

// ChunkRequest names a single chunk.
type ChunkRequest struct {
	ChunkID string `msgpack:"chunk_id"`
}

// Chunk is a chunk payload in flight. ReplicaNodeIDs is only set on the
// primary write; replica writes carry an empty list so they do not fan out
// again.
type Chunk struct {
	ChunkID        string   `msgpack:"chunk_id"`
	Data           []byte   `msgpack:"data"`
	ReplicaNodeIDs []string `msgpack:"replica_node_ids,omitempty"`
}

// ChunkDownloadResponse is one message of the server-stream from the
// gateway's DownloadFile. IsFinalChunk is true only on the last chunk.
type ChunkDownloadResponse struct {
	Data         []byte `msgpack:"data"`
	IsFinalChunk bool   `msgpack:"is_final_chunk"`
}

// ChunkLocation records where one chunk of a file lives.
type ChunkLocation struct {
	ChunkIndex     uint32   `msgpack:"chunk_index"`
	ChunkID        string   `msgpack:"chunk_id"`
	PrimaryNodeID  string   `msgpack:"primary_node_id"`
	ReplicaNodeIDs []string `msgpack:"replica_node_ids"`
}

// FileLocationResponse is the wire form of a file plan.
type FileLocationResponse struct {
	IsSharded bool            `msgpack:"is_sharded"`
	Locations []ChunkLocation `msgpack:"locations"`
}

// FileInfo is one entry of a file listing.
type FileInfo struct {
	Filename string `msgpack:"filename"`
	Size     uint64 `msgpack:"size"`
}

// FileListResponse lists known files.
type FileListResponse struct {
	Files []FileInfo `msgpack:"files"`
}

// NodeInfo is a storage node heartbeat: its advertised address and current
// chunk count.
type NodeInfo struct {
	Address    string `msgpack:"address"`
	ChunkCount uint64 `msgpack:"chunk_count"`
}

// SimpleResponse is a generic success/message pair.
type SimpleResponse struct {
	Success bool   `msgpack:"success"`
	Message string `msgpack:"message"`
}

// RemoveFileResponse reports the outcome of a file deletion, chunk by chunk.
type RemoveFileResponse struct {
	Success       bool     `msgpack:"success"`
	Message       string   `msgpack:"message"`
	RemovedChunks []string `msgpack:"removed_chunks"`
	FailedChunks  []string `msgpack:"failed_chunks"`
}
