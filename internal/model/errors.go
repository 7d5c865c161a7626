package model

import "github.com/rotisserie/eris"

// Error kinds shared by every stage of the grid pipeline. Call sites wrap
// these with the offending value; callers test with eris.Is. None of them
// are retried.
var (
	// ErrConfiguration reports bad spacing, box ordering, or option
	// combinations. It is raised before any engine process is spawned.
	ErrConfiguration = eris.New("configuration error")
	// ErrProtocol reports a missing engine, a non-zero exit, or engine
	// output that cannot be parsed or does not match the request.
	ErrProtocol = eris.New("protocol error")
	// ErrCacheFormat reports a missing, unreadable, or mis-sized cache
	// artifact.
	ErrCacheFormat = eris.New("cache format error")
	// ErrProperty reports a request for an unknown material property.
	ErrProperty = eris.New("property error")
)
