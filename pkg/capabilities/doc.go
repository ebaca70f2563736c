// Package capabilities provides the built-in support capabilities:
// get_weather (OpenWeather), schedule_event (Google Calendar),
// web_search (Tavily) and escalate_to_human (handoff sink).
//
// Provider failures are reported as user-facing text, never as errors, so a
// broken upstream degrades a single reply instead of the turn. The only
// capability that fails with an error is escalate_to_human, when the ticket
// cannot be delivered.
package capabilities
