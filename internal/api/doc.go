// Package api handles incoming HTTP requests for the bulk invite service:
// request decoding and validation, the mapping of domain errors to status
// codes and safe messages, and the websocket stream of job progress. It is
// an adapter between HTTP clients and service.BulkInviteService.
package api
