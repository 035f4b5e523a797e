// Package requestid carries a correlation id through a context.
//
// HTTP requests get one from Middleware; scheduled runs call Ensure before
// invoking the job. LoggerExtractor plugs the id into pkg/logger so every
// record of one run or request can be grouped.
package requestid
