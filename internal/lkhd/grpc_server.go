package lkhd

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/logger"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lkhd.v1.SolverService"

// SolverServiceServer is the gRPC surface of lkhd. Requests and responses are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type SolverServiceServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SolverGRPCServer implements SolverServiceServer on a RunStore backend.
type SolverGRPCServer struct {
	store    *RunStore
	Executor *RunExecutor
}

func NewSolverGRPCServer(store *RunStore, executor *RunExecutor) *SolverGRPCServer {
	return &SolverGRPCServer{
		store:    store,
		Executor: executor,
	}
}

// NewGRPCServer returns a server carrying the solver service and the
// standard health service with the solver marked SERVING.
func NewGRPCServer(store *RunStore, executor *RunExecutor, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	RegisterSolverServiceServer(gs, NewSolverGRPCServer(store, executor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

// RegisterSolverServiceServer registers srv on s.
func RegisterSolverServiceServer(s grpc.ServiceRegistrar, srv SolverServiceServer) {
	s.RegisterService(&solverServiceDesc, srv)
}

// CreateRun takes {run_id?, problem, precision?, parameters?, extra?}.
func (s *SolverGRPCServer) CreateRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		RunID string `json:"run_id,omitempty"`
		RunInput
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.Executor.Submit(in.RunID, &in.RunInput)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRunID):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	logger.Info("run created", "run_id", rec.Run.ID)
	return toStruct(map[string]any{"run": rec.Run})
}

// GetRun takes {run_id} and returns {run, tour?}.
func (s *SolverGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	out := map[string]any{"run": rec.Run}
	if rec.Tour != nil {
		out["tour"] = rec.Tour
	}
	return toStruct(out)
}

// ListRuns takes {limit?, status?}.
func (s *SolverGRPCServer) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := 50
	if v, ok := req.GetFields()["limit"]; ok && v.GetNumberValue() > 0 {
		limit = int(v.GetNumberValue())
	}
	var st RunStatus
	if raw := stringField(req, "status"); raw != "" {
		if st = ParseRunStatus(raw); st == "" {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status: %s", raw)
		}
	}
	recs := s.store.List(limit, st)
	runs := make([]Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}
	return toStruct(map[string]any{"runs": runs})
}

// StopRun takes {run_id}.
func (s *SolverGRPCServer) StopRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Stop(runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		if errors.Is(err, ErrRunTerminal) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	logger.Info("run cancelled", "run_id", runID)
	return toStruct(map[string]any{"run": updated.Run})
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// toStruct round-trips v through JSON so struct tags decide the field names.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func solverMethodHandler(name string, call func(SolverServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SolverServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SolverServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var solverServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SolverServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		solverMethodHandler("CreateRun", SolverServiceServer.CreateRun),
		solverMethodHandler("GetRun", SolverServiceServer.GetRun),
		solverMethodHandler("ListRuns", SolverServiceServer.ListRuns),
		solverMethodHandler("StopRun", SolverServiceServer.StopRun),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lkhd/v1/solver.proto",
}

// SolverServiceClient calls a remote lkhd.
type SolverServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSolverServiceClient(cc grpc.ClientConnInterface) *SolverServiceClient {
	return &SolverServiceClient{cc: cc}
}

func (c *SolverServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SolverServiceClient) CreateRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateRun", in, opts...)
}

func (c *SolverServiceClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRun", in, opts...)
}

func (c *SolverServiceClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRuns", in, opts...)
}

func (c *SolverServiceClient) StopRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopRun", in, opts...)
}
