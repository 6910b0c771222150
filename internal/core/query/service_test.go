// internal/core/query/service_test.go
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/solatis/queryforge/internal/compile"
	"github.com/solatis/queryforge/internal/core/config"
	"github.com/solatis/queryforge/internal/types"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := config.DefaultServiceConfig()
	cfg.AllowedFields = []string{"status", "priority", "age"}
	cfg.AllowedTables = []string{"tickets"}

	svc, err := NewService(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func validTree() *types.Group {
	return &types.Group{
		NodeID:   types.NewNodeID(),
		Operator: types.BoolAnd,
		Children: []types.Node{
			&types.Condition{
				NodeID:   types.NewNodeID(),
				Field:    "status",
				Operator: types.OpEquals,
				Value:    types.StringValue("open"),
				DataType: types.TypeString,
			},
		},
	}
}

func sqlExecCtx() compile.ExecutionContext {
	return compile.ExecutionContext{Collection: "tickets"}
}

func TestService_RequiresConfig(t *testing.T) {
	if _, err := NewService(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestBuild_CompilesValidTree(t *testing.T) {
	svc := testService(t)
	sq, err := svc.Build(context.Background(), validTree(), compile.TargetSQL, sqlExecCtx(), BuildOptions{Tenant: "acme"})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if sq.SQL == nil {
		t.Fatal("SQL result should be populated")
	}
	if sq.Metadata.Complexity < 1 {
		t.Errorf("Complexity = %v, want >= 1", sq.Metadata.Complexity)
	}
}

func TestBuild_ReturnsValidationError(t *testing.T) {
	svc := testService(t)
	// status is a declared string field; between needs a comparison array
	bad := validTree()
	bad.Children = append(bad.Children, &types.Condition{
		NodeID:   types.NewNodeID(),
		Field:    "age",
		Operator: types.OpBetween,
		Value:    types.StringValue("nope"),
		DataType: types.TypeNumber,
	})

	_, err := svc.Build(context.Background(), bad, compile.TargetSQL, sqlExecCtx(), BuildOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Result.Valid {
		t.Error("ValidationError should carry an invalid result")
	}
	if len(verr.Result.Diagnostics) == 0 {
		t.Error("ValidationError should carry diagnostics")
	}
}

func TestBuild_RejectsUnknownTarget(t *testing.T) {
	svc := testService(t)
	_, err := svc.Build(context.Background(), validTree(), compile.Target("graphql"), sqlExecCtx(), BuildOptions{})
	if !errors.Is(err, types.ErrUnknownTarget) {
		t.Fatalf("error = %v, want ErrUnknownTarget", err)
	}
}

func TestBuild_CachesCompiledQueries(t *testing.T) {
	svc := testService(t)
	root := validTree()
	opts := BuildOptions{Tenant: "acme"}

	first, err := svc.Build(context.Background(), root, compile.TargetSQL, sqlExecCtx(), opts)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if svc.CacheLen() != 1 {
		t.Fatalf("CacheLen() = %v, want 1", svc.CacheLen())
	}

	second, err := svc.Build(context.Background(), root, compile.TargetSQL, sqlExecCtx(), opts)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if first != second {
		t.Error("second Build should return the cached result")
	}
}

func TestBuild_CacheKeyVariesByInputs(t *testing.T) {
	svc := testService(t)
	root := validTree()
	ctx := context.Background()

	if _, err := svc.Build(ctx, root, compile.TargetSQL, sqlExecCtx(), BuildOptions{}); err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if _, err := svc.Build(ctx, root, compile.TargetSQL, sqlExecCtx(), BuildOptions{Optimize: true}); err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if _, err := svc.Build(ctx, root, compile.TargetMongoDB, sqlExecCtx(), BuildOptions{}); err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	// Optimize flag and target are each part of the key
	if svc.CacheLen() != 3 {
		t.Fatalf("CacheLen() = %v, want 3 distinct entries", svc.CacheLen())
	}

	svc.PurgeCache()
	if svc.CacheLen() != 0 {
		t.Fatalf("CacheLen() after purge = %v, want 0", svc.CacheLen())
	}
}

func TestBuild_OptimizationNotesSurviveCompilation(t *testing.T) {
	svc := testService(t)
	root := validTree()
	// An empty sibling group gives the optimizer something to remove
	root.Children = append(root.Children, &types.Group{
		NodeID:   types.NewNodeID(),
		Operator: types.BoolOr,
	})

	sq, err := svc.Build(context.Background(), root, compile.TargetSQL, sqlExecCtx(), BuildOptions{Optimize: true})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if len(sq.Metadata.OptimizationNotes) == 0 {
		t.Error("OptimizationNotes should record the removed empty group")
	}
}

func TestService_AnalyticsWeightsScoreHigher(t *testing.T) {
	cfg := config.DefaultServiceConfig()
	cfg.AnalyticsWorkload = true
	analytics, err := NewService(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	standard := testService(t)

	// Deep nesting amplifies the depth weight difference
	root := validTree()
	inner := validTree()
	for i := 0; i < 4; i++ {
		wrap := &types.Group{NodeID: types.NewNodeID(), Operator: types.BoolAnd, Children: []types.Node{inner}}
		inner = wrap
	}
	root.Children = append(root.Children, inner)

	if a, s := analytics.Complexity(root), standard.Complexity(root); a < s {
		t.Errorf("analytics complexity %v should be >= standard %v", a, s)
	}
}

func TestService_StatelessHasNoStore(t *testing.T) {
	svc := testService(t)
	if svc.Store() != nil {
		t.Error("Store() should be nil for a stateless service")
	}
	if _, _, err := svc.CreateShare("acme", types.NewTemplateID(), 0); !errors.Is(err, ErrNoStore) {
		t.Errorf("CreateShare error = %v, want ErrNoStore", err)
	}
}

func TestService_ShareOpsFailCleanlyWithoutStore(t *testing.T) {
	cfg := config.DefaultServiceConfig()
	secrets := map[string][]byte{
		"0123456789abcdef0123456789abcdef": []byte("0123456789abcdef0123456789abcdef"),
	}
	svc, err := NewService(cfg, nil, secrets, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	// Secrets alone are not enough; both operations need the store and
	// must return an error rather than dereference it
	if _, _, err := svc.CreateShare("acme", types.NewTemplateID(), time.Hour); !errors.Is(err, ErrNoStore) {
		t.Errorf("CreateShare error = %v, want ErrNoStore", err)
	}

	shareID := "0123456789abcdef0123456789abcdef"
	token := fmt.Sprintf("qf-v1-%s-%s", shareID, strings.Repeat("ab", 32))
	if _, err := svc.VerifyShare(token); !errors.Is(err, ErrNoStore) {
		t.Errorf("VerifyShare error = %v, want ErrNoStore", err)
	}
}
