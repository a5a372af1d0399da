// Package webhdfs is a client for the Hadoop WebHDFS REST API.
//
// A Client holds the name-node address and the acting user and exposes one
// method per filesystem operation. Data-carrying writes (Create, Append) use
// the two-phase 307 handshake: the name node is asked first without a body,
// and the payload is then sent to the data node named in its Location header.
//
// Methods report server-side negatives in their return value (false, nil or
// ""), and return an error alongside when the exchange itself failed. Use
// errors.As with *httpx.HTTPError to inspect the status and RemoteException
// of a rejected call, or errors.Is with ErrNotFound.
//
// Subpackage mock provides an in-memory cluster that speaks the same
// protocol.
package webhdfs
