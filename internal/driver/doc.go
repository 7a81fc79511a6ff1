// Package driver implements the Tool-Use Agent Driver: given a session
// and a chosen agent, it produces the next tool invocation (or declares
// failure) without mutating the session until the provider responds.
//
// The driver supports two modes. Text mode asks the provider for prose
// and parses a <thinking> block plus a tool-tagged XML block out of it.
// JSON mode hands the provider a tool schema list and gets back a
// structured tool-use record directly. Both modes retry up to four
// times, alternating the failover model on odd attempts and the
// primary model on even attempts; a parse failure, an empty
// completion, or a transient provider error all trigger a retry,
// while cancellation short-circuits the loop immediately.
//
// Once a tool invocation is chosen, the driver hands it to the tool
// registry, applies permission and doom-loop checks, and appends the
// resulting ToolOutput exchange through the session service — or, for
// a tool execution cancelled mid-flight, leaves the session untouched.
package driver
