/*
Package domain contains the core domain models of the Switchboard workflow engine.

It defines the per-turn record threaded through the state machine, the decisions the
intent classifier can produce, and the node/edge vocabulary of the workflow graph.
This package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - TurnState: The immutable-update record of one workflow run (query, context, calls, response).
  - Update: A partial change to a TurnState; nil fields are left untouched by Merge.
  - Decision: The classifier's verdict (tool call, retrieval, escalation or direct answer).
  - NodeID / Edge: The states and labelled transitions of the workflow graph.
  - Ticket: A handoff request delivered to the human support channel.
*/
package domain
