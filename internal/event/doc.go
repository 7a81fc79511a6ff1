/*
Package event provides a type-safe, pub/sub event system for the orchestrator's server.

The event system enables decoupled communication between different components of the
server by allowing publishers to emit events and subscribers to react to them without
direct dependencies.

# Architecture

The package is built on top of watermill's gochannel for infrastructure while maintaining
direct-call semantics to preserve type information. It provides both synchronous and
asynchronous event publishing patterns.

# Event Types

The system supports various event categories:

Session Events:
  - session.created: New session created
  - session.updated: Session modified
  - session.deleted: Session removed

types.go also declares SessionIdleData and SessionErrorData payloads
for session.idle and session.error, but no EventType constant exists
for either.

Exchange Events:
  - exchange.tool_use_detected: Driver's stream revealed a tool call
  - exchange.tool_output_delta: Incremental tool output streaming in
  - exchange.edits_started: An edit exchange began
  - exchange.edits_accepted: An edit exchange was accepted by the user
  - exchange.edits_cancelled: An edit exchange was rejected
  - exchange.plan_accepted: A plan exchange was accepted
  - exchange.plan_cancelled: A plan exchange was rejected
  - exchange.plan_title_added: A plan step gained a title
  - exchange.plan_description_updated: A plan step's description changed
  - exchange.inference_started: A driver turn was submitted to the model
  - exchange.request_review: An edit or plan needs human acceptance
  - exchange.finished: An exchange reached a terminal state
  - exchange.agentic_top_level_thinking: Outer reasoning streaming in
  - exchange.agentic_symbol_level_thinking: Symbol-scoped reasoning streaming in
  - exchange.found_reference: A search tool surfaced an unattached file
  - exchange.send_variables: Resolved variable references sent to the client
  - exchange.chat_event: A plain chat reply streaming in

File Events:
  - file.edited: File was modified

Permission Events:
  - permission.required: Permission request created
  - permission.resolved: Permission request responded to

Client Tool Events (payload types only; no EventType constants are
declared for these names):
  - client-tool.request: Tool execution requested
  - client-tool.registered: Tools registered by client
  - client-tool.unregistered: Tools unregistered by client
  - client-tool.executing: Tool execution started
  - client-tool.completed: Tool execution completed
  - client-tool.failed: Tool execution failed

# Basic Usage

Publishing events:

	// Asynchronous publishing (non-blocking)
	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{
			Info: session,
		},
	})

	// Synchronous publishing (blocking until all subscribers complete)
	event.PublishSync(event.Event{
		Type: event.FinishedExchange,
		Data: event.FinishedExchangeData{
			ExchangeData: event.ExchangeData{SessionID: sessionID, ExchangeID: exchangeID},
			State:        types.StateAccepted,
		},
	})

Subscribing to specific events:

	unsubscribe := event.Subscribe(event.SessionCreated, func(e event.Event) {
		data := e.Data.(event.SessionCreatedData)
		log.Info("Session created", "id", data.Info.ID)
	})
	defer unsubscribe()

Subscribing to all events:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		log.Debug("Event received", "type", e.Type)
	})
	defer unsubscribe()

# Subscriber Safety Guidelines

When using PublishSync, subscribers are called synchronously in the publisher's
goroutine. To avoid blocking or deadlocks, subscribers MUST:

  - Complete quickly (avoid long-running operations)
  - Use non-blocking channel sends (select with default case)
  - Never call Publish/PublishSync from within a subscriber (no re-entrant publishing)
  - Never acquire locks that the publisher might hold

Example of a safe subscriber:

	event.SubscribeAll(func(e event.Event) {
	    select {
	    case eventChan <- e:
	        // Event sent successfully
	    default:
	        // Channel full, drop event to avoid blocking
	        log.Warn("Event dropped due to full channel", "type", e.Type)
	    }
	})

# Custom Event Bus

For testing or isolation, you can create custom bus instances:

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.SessionCreated, handler)
	bus.PublishSync(event.Event{Type: event.SessionCreated, Data: data})

# SDK Compatibility

Many event types and data structures are designed to be compatible with the
session SDK clients consume over SSE. Event names and data field names follow
SDK conventions where possible, with compatibility notes in the type
definitions.

# Testing

The package provides utilities for testing:

	// Reset global bus state (use in test cleanup)
	event.Reset()

# Thread Safety

The event bus is thread-safe and can be used concurrently from multiple goroutines.
Both publishing and subscribing operations are protected by internal synchronization.

# Performance Considerations

- Asynchronous publishing (Publish) creates a goroutine per subscriber per event
- Synchronous publishing (PublishSync) calls all subscribers in the current goroutine
- Use PublishSync for critical events where ordering matters
- Use Publish for fire-and-forget notifications
- Consider subscriber performance impact on PublishSync calls

# Integration with Watermill

The package uses watermill's gochannel internally, providing access to the underlying
pubsub infrastructure for advanced use cases:

	pubsub := event.PubSub()
	// Use watermill features like middleware, routing, etc.

This allows future migration to distributed message brokers if needed while maintaining
the current API.
*/
package event