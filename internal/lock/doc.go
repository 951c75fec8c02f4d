// Package lock provides keyed mutual exclusion for booking writes, either within
// one process (KeyedMutex) or across processes sharing a Redis server (RedisLocker).
package lock
