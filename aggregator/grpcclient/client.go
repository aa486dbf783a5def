package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aurelia-chain/aurelia-go/aggregator"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// Client is one authority's gRPC client. It is safe for concurrent use; the
// underlying connection multiplexes all in-flight requests.
type Client struct {
	conn *grpc.ClientConn
}

var _ aggregator.AuthorityClient = (*Client)(nil)

// NewClient wraps an established connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// SubmitTransaction submits a transaction for voting.
func (c *Client) SubmitTransaction(ctx context.Context, tx *aurelia.Transaction) (*aggregator.TransactionResponse, error) {
	var reply transactionReply
	err := c.invoke(ctx, methodSubmitTransaction, &transactionRequest{Transaction: tx}, &reply)
	if err != nil {
		return nil, err
	}
	return &aggregator.TransactionResponse{
		Vote:        reply.Vote,
		Certificate: reply.Certificate,
		Effects:     reply.Effects,
	}, nil
}

// SubmitCertificate submits a certificate for execution.
func (c *Client) SubmitCertificate(ctx context.Context, cert *aurelia.Certificate) (*aggregator.CertificateResponse, error) {
	var reply certificateReply
	err := c.invoke(ctx, methodSubmitCertificate, &certificateRequest{Certificate: cert}, &reply)
	if err != nil {
		return nil, err
	}
	return &aggregator.CertificateResponse{Effects: reply.Effects}, nil
}

// CommitteeInfo fetches the certified committee of the given epoch; the
// reply carries nil when the authority knows no such epoch.
func (c *Client) CommitteeInfo(ctx context.Context, epoch uint64) (*aurelia.CommitteeInfo, error) {
	var reply committeeInfoReply
	err := c.invoke(ctx, methodCommitteeInfo, &committeeInfoRequest{Epoch: epoch}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Info, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, reply interface{}) error {
	err := c.conn.Invoke(ctx, method, req, reply)
	if err != nil {
		return convertError(err)
	}
	return nil
}

// convertError maps definitive gRPC status codes onto RejectedError so the
// retry layer does not retry requests the authority rejected on principle.
func convertError(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.InvalidArgument,
		codes.FailedPrecondition,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.Unimplemented:
		return aggregator.NewRejectedErrorf("authority rejected request: %s", s.Message())
	default:
		return err
	}
}
