package handler

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

const (
	ReconcilerServiceName = "retail.reconciler.v1.Reconciler"
	ReconcileMethod       = "/" + ReconcilerServiceName + "/Reconcile"
)

// ReconcilerServer is the server API of the Reconciler gRPC service. Requests
// and responses are google.protobuf.Struct values so no generated code is needed.
type ReconcilerServer interface {
	Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ReconcilerServiceDesc = grpc.ServiceDesc{
	ServiceName: ReconcilerServiceName,
	HandlerType: (*ReconcilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Reconcile",
			Handler:    reconcileHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reconciler.proto",
}

func RegisterReconcilerServer(s grpc.ServiceRegistrar, srv ReconcilerServer) {
	s.RegisterService(&ReconcilerServiceDesc, srv)
}

func reconcileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconcilerServer).Reconcile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ReconcileMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconcilerServer).Reconcile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	reconciler       Reconciler
	resupplyQuantity int
}

func NewGRPCHandler(reconciler Reconciler, resupplyQuantity int) *GRPCHandler {
	return &GRPCHandler{reconciler: reconciler, resupplyQuantity: resupplyQuantity}
}

// Reconcile accepts an optional numeric "resupply_quantity" field.
func (h *GRPCHandler) Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	quantity := h.resupplyQuantity
	if v, ok := req.GetFields()["resupply_quantity"]; ok {
		n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber || !isInt32(n.NumberValue) {
			return nil, status.Error(codes.InvalidArgument, "resupply_quantity must be a 32-bit integer")
		}
		quantity = int(n.NumberValue)
	}

	result, err := h.reconciler.Reconcile(ctx, quantity)
	if err != nil {
		st := statusFor(err)
		return nil, status.Error(st.grpc, st.message)
	}

	return newReconcileStruct(result)
}

// isInt32 rejects fractions, NaN and values outside int32 before conversion.
func isInt32(v float64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32 && v == math.Trunc(v)
}

func newReconcileStruct(result *domain.BatchResult) (*structpb.Struct, error) {
	s := result.Summary
	return structpb.NewStruct(map[string]interface{}{
		"batch_id":             result.BatchID,
		"transactions":         s.Transactions,
		"fulfilled":            s.Fulfilled,
		"stockouts":            s.Stockouts,
		"units_sold":           s.UnitsSold,
		"resupply_orders":      len(result.Orders),
		"delta_rows":           len(result.Delta),
		"unresolved_suppliers": s.UnresolvedSuppliers,
		"fulfilled_revenue":    s.FulfilledRevenue.StringFixed(2),
		"lost_revenue":         s.LostRevenue.StringFixed(2),
	})
}
