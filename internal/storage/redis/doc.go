// Package redis caches deployment records in Redis in front of a slower
// deployments.Source such as the MySQL store.
package redis
