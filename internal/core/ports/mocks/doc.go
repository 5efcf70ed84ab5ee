// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that behaves like a healthy store or platform
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for inspecting recorded state
//
// # Usage Example
//
//	func TestDrain(t *testing.T) {
//		persistence := mocks.NewBufferPersistence()
//		journal := buffer.NewJournal(persistence, &logger)
//
//		store := buffer.NewStore(journal, 4000)
//		// ... exercise the store, then journal.Flush and inspect persistence.Messages()
//	}
//
// # Available Mocks
//
//   - BufferPersistence: implements ports.BufferPersistence
//   - ModerationLog: implements ports.ModerationLog
//   - Gateway: implements ports.ModerationGateway
//   - ReviewSink: implements ports.ReviewSink
package mocks
