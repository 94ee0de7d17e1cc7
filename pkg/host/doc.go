// Package host defines the collaborator surface the glasspane engine
// requires from a platform adapter: the container and node tree APIs, the
// backdrop capability probe and factory, UI-thread marshaling, the frame
// clock and coarse interval timers, and the hook interception model.
//
// The engine performs every tree read and write on the host's single UI
// thread. Adapters expose that thread through Dispatch (next-turn
// enqueue) and invoke the registered HookSink synchronously on it around
// their own operations.
//
// MemoryHost is a complete in-memory implementation used by the test
// suites and the simulation harness. Its manual frame clock and timers
// make scheduler behavior deterministic under test.
package host
