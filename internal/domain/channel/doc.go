// Package channel defines the sales-channel side of the hub: the fixed set
// of supported channels, the wave rollout table, per-channel price rules and
// the price computation, the connector port interface, and the payload and
// result shapes exchanged with connectors.
//
// This package follows the Ports & Adapters pattern: the Connector interface
// is defined here, and concrete implementations (Woo, Zid, Salla, Shopify)
// live in the infrastructure layer.
package channel
