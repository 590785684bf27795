package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so cache and server
// events can be correlated during log aggregation.
const (
	// Resource identification
	KeyResourceID = "resource_id" // Opaque resource identifier
	KeyType       = "type"        // Resource classification (image, json, binary, ...)
	KeyVersion    = "version"     // Resource version number
	KeyHash       = "hash"        // Integrity digest (sha256 hex)

	// Memory pool
	KeySize      = "size_bytes"  // Payload/block size in bytes
	KeyUsed      = "used_bytes"  // Bytes currently resident in the pool
	KeyFree      = "free_bytes"  // Bytes available below the budget
	KeyBlocks    = "blocks"      // Number of resident blocks
	KeyPriority  = "priority"    // Eviction priority (0-255)
	KeyEvicted   = "evicted"     // Blocks evicted by a cleanup pass
	KeyFreed     = "freed_bytes" // Bytes freed by a cleanup pass
	KeyThreshold = "threshold"   // Cleanup threshold in bytes

	// Cache index
	KeyHits     = "hits"      // Cumulative cache hits
	KeyMisses   = "misses"    // Cumulative cache misses
	KeyHitRatio = "hit_ratio" // Hit ratio percentage

	// HTTP / transport
	KeyMethod     = "method"      // HTTP method
	KeyPath       = "path"        // Request path
	KeyStatus     = "status"      // HTTP status code
	KeyRemoteAddr = "remote_addr" // Client address
	KeyDuration   = "duration"    // Operation duration
	KeyServerURL  = "server_url"  // Remote resource server base URL

	// Errors
	KeyError = "error" // Error message
)
