package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Submit enqueues a batch of source files.
func (c *Client) Submit(paths []string) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{Paths: paths}
	if err := c.client.Call("Squeeze.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Squeeze.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Squeeze.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue jobs optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses}
	if err := c.client.Call("Squeeze.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueDescribe returns details for a single queue job.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	var resp QueueDescribeResponse
	req := QueueDescribeRequest{ID: id}
	if err := c.client.Call("Squeeze.QueueDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes all jobs from the queue.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.client.Call("Squeeze.QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry retries failed jobs.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	req := QueueRetryRequest{IDs: ids}
	if err := c.client.Call("Squeeze.QueueRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns sequenced progress events after the given sequence number.
func (c *Client) Events(sinceSeq int64) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{SinceSeq: sinceSeq}
	if err := c.client.Call("Squeeze.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewResolve resolves a preview handle token to its backing path.
func (c *Client) PreviewResolve(token string) (*PreviewResolveResponse, error) {
	var resp PreviewResolveResponse
	req := PreviewResolveRequest{Token: token}
	if err := c.client.Call("Squeeze.PreviewResolve", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
