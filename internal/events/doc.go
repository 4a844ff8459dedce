// Package events relays ExampleNFT Transfer logs to a message queue. The
// relay subscribes through the contract handle's current reader and hands
// each decoded event to a Publisher backed by memory, a Redis list or a
// RabbitMQ queue.
package events
