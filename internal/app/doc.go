// Package app contains the core application logic. It defines the main App
// struct, its configuration and the operations the CLI exposes (validate,
// order, inspect, plan), decoupled from any specific entrypoint.
package app
