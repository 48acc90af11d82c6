/*
Package domain contains the core models shared by the cueline engine and its adapters.

It defines positions, tempo segments, cue nodes, commands, timeline events and the
published status snapshot. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - SamplePosition: The ground-truth time unit (samples since show zero).
  - TempoSegment: One stretch of constant or ramping tempo, optionally a vamp point.
  - CueNode: A node of the cue graph with its musical entry/exit and exit policy.
  - Command: A control instruction drained by the engine at tick boundaries.
  - Timeline: The ordered events and position spans produced by one tick.
  - Snapshot: The read-only status view published after every tick.
*/
package domain
