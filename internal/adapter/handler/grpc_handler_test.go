package handler

import (
	"context"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/sales-reconciler/internal/core/service"
)

func dialReconciler(t *testing.T, rec Reconciler) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterReconcilerServer(srv, NewGRPCHandler(rec, 50))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invokeReconcile(conn *grpc.ClientConn, fields map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	err = conn.Invoke(context.Background(), ReconcileMethod, req, resp)
	return resp, err
}

func TestGRPCReconcile(t *testing.T) {
	rec := &fakeReconciler{result: committedResult()}
	conn := dialReconciler(t, rec)

	resp, err := invokeReconcile(conn, map[string]interface{}{"resupply_quantity": 10})
	require.NoError(t, err)

	assert.Equal(t, 10, rec.quantity)
	fields := resp.GetFields()
	assert.Equal(t, "batch-1", fields["batch_id"].GetStringValue())
	assert.Equal(t, float64(3), fields["transactions"].GetNumberValue())
	assert.Equal(t, float64(1), fields["resupply_orders"].GetNumberValue())
	assert.Equal(t, "15.00", fields["fulfilled_revenue"].GetStringValue())
	assert.Equal(t, "9.99", fields["lost_revenue"].GetStringValue())
}

func TestGRPCReconcile_DefaultQuantity(t *testing.T) {
	rec := &fakeReconciler{result: committedResult()}
	conn := dialReconciler(t, rec)

	_, err := invokeReconcile(conn, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.quantity)
}

func TestGRPCReconcile_NonIntegerQuantity(t *testing.T) {
	rec := &fakeReconciler{result: committedResult()}
	conn := dialReconciler(t, rec)

	_, err := invokeReconcile(conn, map[string]interface{}{"resupply_quantity": 2.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invokeReconcile(conn, map[string]interface{}{"resupply_quantity": "ten"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, v := range []float64{1e19, -1e19, math.MaxInt32 + 1, math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err = invokeReconcile(conn, map[string]interface{}{"resupply_quantity": v})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "value %v", v)
	}
	assert.Zero(t, rec.calls)
}

func TestGRPCReconcile_ErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{service.ErrBatchInProgress, codes.Aborted},
		{&service.UnknownProductError{ProductID: 4}, codes.FailedPrecondition},
		{service.ErrStoreRead, codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{&service.CommitError{BatchID: "b", Err: assert.AnError}, codes.Internal},
	}

	for _, tt := range tests {
		conn := dialReconciler(t, &fakeReconciler{err: tt.err})
		_, err := invokeReconcile(conn, nil)
		assert.Equal(t, tt.code, status.Code(err), "error %v", tt.err)
	}
}
