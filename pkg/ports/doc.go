/*
Package ports defines the driven ports (interfaces) for the cueline engine.

These interfaces decouple the real-time core from everything that may block: show
storage, snapshot persistence, control surfaces and event consumers.

# Key Interfaces

  - ShowLoader: Loads a show definition (YAML/JSON file, markdown cue sheets, memory).
  - Watchable: Signals that a loader's backing storage changed, for hot reload.
  - SnapshotStore: Persists the last known status of a run so it can be resumed.
  - Controller: The engine as seen by a control adapter (HTTP, MCP, TUI, stdin).
  - EventHandler: Consumes notable engine events off the audio thread.
*/
package ports
