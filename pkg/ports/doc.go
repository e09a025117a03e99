/*
Package ports defines the driven ports (interfaces) of the palaver engine.

These interfaces decouple the dialogue core from the host game and from storage,
so the same engine runs inside a game server, behind the HTTP adapter, or in the
terminal.

# Key Interfaces

  - DocumentLoader: lists and loads conversation documents (file, memory, loam).
  - CommandHost: carries out commands and messages on behalf of a player.
  - Scheduler: runs command hops on the host's authoritative update tick.
  - Presenter: shows and dismisses the dialogue view of a player.
  - SnapshotStore: persists conversation snapshots so they can be resumed.
  - DistributedLocker: coordinates per-player access across replicas.
*/
package ports
