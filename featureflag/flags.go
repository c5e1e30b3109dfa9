package featureflag

type Flag string

const (
	// Stops publishing controller events to WebSocket viewers.
	FlagDisableEventStream Flag = "DISABLE_EVENT_STREAM"

	// Removes the /debug/tree endpoint.
	FlagDisableTreeDebug Flag = "DISABLE_TREE_DEBUG"

	// Forces synchronous streaming whatever the scene manifest says.
	FlagSynchronousStreaming Flag = "SYNCHRONOUS_STREAMING"
)
