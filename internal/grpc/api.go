package grpc

import (
	"context"
	"encoding/json"

	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"google.golang.org/grpc"
)

const (
	serviceName = "soil.v1.SoilDataService"

	submitReadingMethod = "/" + serviceName + "/SubmitReading"
	listReadingsMethod  = "/" + serviceName + "/ListReadings"
	getSummaryMethod    = "/" + serviceName + "/GetSummary"
)

// SubmitReadingRequest carries the submission document untouched, so the
// server applies exactly the presence checks of the REST endpoint.
type SubmitReadingRequest struct {
	Payload json.RawMessage
}

func (r SubmitReadingRequest) MarshalJSON() ([]byte, error) {
	if len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}

func (r *SubmitReadingRequest) UnmarshalJSON(b []byte) error {
	r.Payload = append(r.Payload[:0], b...)
	return nil
}

type SubmitReadingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ListReadingsRequest mirrors the REST query parameters. From and To are
// RFC 3339; a zero Limit means no limit.
type ListReadingsRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListReadingsResponse struct {
	Data []*domain.SoilReading `json:"data"`
}

type GetSummaryRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
}

type GetSummaryResponse struct {
	Data *domain.ReadingSummary `json:"data"`
}

// SoilDataServer is the server API of soil.v1.SoilDataService.
type SoilDataServer interface {
	SubmitReading(ctx context.Context, req *SubmitReadingRequest) (*SubmitReadingResponse, error)
	ListReadings(ctx context.Context, req *ListReadingsRequest) (*ListReadingsResponse, error)
	GetSummary(ctx context.Context, req *GetSummaryRequest) (*GetSummaryResponse, error)
}

func RegisterSoilDataServer(s grpc.ServiceRegistrar, srv SoilDataServer) {
	s.RegisterService(&soilDataServiceDesc, srv)
}

var soilDataServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SoilDataServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitReading", Handler: submitReadingHandler},
		{MethodName: "ListReadings", Handler: listReadingsHandler},
		{MethodName: "GetSummary", Handler: getSummaryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "soil/v1/soil.json",
}

func submitReadingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitReadingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SoilDataServer).SubmitReading(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitReadingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SoilDataServer).SubmitReading(ctx, req.(*SubmitReadingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listReadingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListReadingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SoilDataServer).ListReadings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listReadingsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SoilDataServer).ListReadings(ctx, req.(*ListReadingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSummaryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SoilDataServer).GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSummaryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SoilDataServer).GetSummary(ctx, req.(*GetSummaryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls soil.v1.SoilDataService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) SubmitReading(ctx context.Context, in *SubmitReadingRequest, opts ...grpc.CallOption) (*SubmitReadingResponse, error) {
	out := new(SubmitReadingResponse)
	if err := c.invoke(ctx, submitReadingMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListReadings(ctx context.Context, in *ListReadingsRequest, opts ...grpc.CallOption) (*ListReadingsResponse, error) {
	out := new(ListReadingsResponse)
	if err := c.invoke(ctx, listReadingsMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSummary(ctx context.Context, in *GetSummaryRequest, opts ...grpc.CallOption) (*GetSummaryResponse, error) {
	out := new(GetSummaryResponse)
	if err := c.invoke(ctx, getSummaryMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
