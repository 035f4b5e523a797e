// Package runlog stores the report of the latest monthly credits run per
// period in Redis, so operators can inspect what the last scheduled or
// manual run did.
package runlog
