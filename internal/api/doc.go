// Package api exposes the ExampleNFT binding over HTTP: binding metadata,
// read calls against the bound provider, minting through a signer-bound
// handle and the Prometheus metrics endpoint.
package api
