// Package web3 defines the connection abstractions shared by the chain
// clients, signers and contract bindings: a read-only Provider, a
// transaction-capable Transactor and a Signer that can authorise
// transactions. It also loads the multi-chain definitions file.
package web3
