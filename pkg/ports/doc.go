/*
Package ports defines the driven ports (interfaces) of the Switchboard engine.

These interfaces decouple the workflow from its external collaborators, so the
engine can run against real providers, caches or in-memory fakes.

# Key Interfaces

  - Completer: The opaque text-completion service (language model).
  - Retriever: The "top-k passages for a query" document search service.
  - HandoffSink: The human support channel that receives escalation tickets.
  - HandoffQueue: A HandoffSink whose pending tickets can be listed.
  - TurnHandler: What inbound transports (HTTP, MCP, CLI) drive.
*/
package ports
