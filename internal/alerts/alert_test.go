package alerts

import "testing"

func TestComputeSeverity(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		threshold int
		want      Severity
	}{
		{"out of stock", 0, 10, SeverityCritical},
		{"out of stock zero threshold", 0, 0, SeverityCritical},
		{"at half threshold", 5, 10, SeverityHigh},
		{"below half threshold", 3, 10, SeverityHigh},
		{"odd threshold half boundary", 2, 5, SeverityHigh},
		{"just above half threshold", 6, 10, SeverityMedium},
		{"at threshold", 10, 10, SeverityMedium},
		{"odd threshold above half", 3, 5, SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSeverity(tt.stock, tt.threshold); got != tt.want {
				t.Errorf("ComputeSeverity(%d, %d) = %s, want %s", tt.stock, tt.threshold, got, tt.want)
			}
		})
	}
}
