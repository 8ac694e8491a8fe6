package demoguard

import "testing"

func TestIsDemoIdentity(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		partner  string
		tenant   string
		explicit *bool
		want     bool
	}{
		{"canonical slugs", DemoPartnerSlug, DemoTenantSlug, nil, true},
		{"partner only", DemoPartnerSlug, "real-cafe", nil, false},
		{"tenant only", "acme", DemoTenantSlug, nil, false},
		{"real identity", "acme", "main-st", nil, false},
		{"explicit true wins over real slugs", "acme", "main-st", &yes, true},
		{"explicit false wins over demo slugs", DemoPartnerSlug, DemoTenantSlug, &no, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDemoIdentity(tt.partner, tt.tenant, tt.explicit); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_DemoPolicy(t *testing.T) {
	tests := []struct {
		op      OperationKind
		allowed bool
	}{
		{OpDelete, false},
		{OpPayment, false},
		{OpIrreversible, false},
		{OpExport, true},
		{OperationKind("report"), true}, // unknown kinds are not guarded
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			d := Guard(DemoPartnerSlug, DemoTenantSlug, tt.op)
			if d.Allowed != tt.allowed {
				t.Fatalf("allowed: got %v, want %v", d.Allowed, tt.allowed)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatal("denial must carry a reason")
			}
			if d.Allowed && d.Reason != "" {
				t.Fatalf("allow must not carry a reason: %q", d.Reason)
			}
		})
	}
}

func TestGuard_NonDemoAlwaysAllowed(t *testing.T) {
	for _, op := range []OperationKind{OpDelete, OpPayment, OpIrreversible, OpExport} {
		d := Guard("acme", "main-st", op)
		if !d.Allowed {
			t.Fatalf("%s blocked outside demo identity: %+v", op, d)
		}
	}
}
