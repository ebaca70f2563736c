/*
Package switchboard is a conversational support-agent engine.

Each user query runs as one turn through a fixed workflow: retrieve context,
classify the intent, run capabilities (weather, scheduling, search), synthesize
a reply, and hand off to a human when the reply looks inadequate or the
classifier asks for it.

# Architecture

The engine is hexagonal. The core (pkg/domain, internal/runtime) only talks to
ports (pkg/ports): a text-completion service, a document retriever and a
handoff sink. Adapters under pkg/adapters plug real infrastructure (OpenAI,
Redis, NATS, HTTP, MCP) into those ports.

# Usage

	completer := openai.New(apiKey)

	eng, err := switchboard.New(completer,
		switchboard.WithRegistry(registry),
		switchboard.WithRetriever(store),
	)
	if err != nil {
		log.Fatal(err)
	}

	reply, err := eng.Handle(ctx, domain.TurnRequest{Query: "What's the weather in Lahore?", UserID: "U1"})
	fmt.Println(reply.Response)

Failures inside the workflow never surface as errors: they are converted to
degraded replies (an apology, an empty context, an escalation). Handle only
returns an error when the turn could not complete at all, in which case the
reply carries ErrorResponse.
*/
package switchboard
