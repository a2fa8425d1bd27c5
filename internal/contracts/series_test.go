package contracts

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var day0 = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

func points(values ...float64) []EquityPoint {
	out := make([]EquityPoint, len(values))
	for i, v := range values {
		out[i] = EquityPoint{Timestamp: day0.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestNewTimeSeries(t *testing.T) {
	src := points(100, 110, 105)
	s, err := NewTimeSeries(src)
	if err != nil {
		t.Fatalf("NewTimeSeries() error = %v", err)
	}

	// 원본 수정이 시리즈에 영향을 주면 안 됨
	src[0].Value = 1
	if got := s.At(0).Value; got != 100 {
		t.Errorf("At(0) = %v, want 100 (series must own its points)", got)
	}

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if first, ok := s.First(); !ok || !first.Timestamp.Equal(day0) {
		t.Errorf("First() = %v, %v", first, ok)
	}
	if last, ok := s.Last(); !ok || last.Value != 105 {
		t.Errorf("Last() = %v, %v", last, ok)
	}
}

func TestNewTimeSeries_Invalid(t *testing.T) {
	dup := points(100, 110)
	dup[1].Timestamp = dup[0].Timestamp

	tests := []struct {
		name   string
		points []EquityPoint
	}{
		{"zero value", points(100, 0)},
		{"negative value", points(-1)},
		{"duplicate timestamp", dup},
		{"out of order", []EquityPoint{points(1, 2)[1], points(1, 2)[0]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeSeries(tt.points)
			if !errors.Is(err, ErrInvalidSeries) {
				t.Errorf("error = %v, want ErrInvalidSeries", err)
			}
		})
	}
}

func TestSortedTimeSeries(t *testing.T) {
	p := points(100, 110, 120)
	s, err := SortedTimeSeries([]EquityPoint{p[2], p[0], p[1]})
	if err != nil {
		t.Fatalf("SortedTimeSeries() error = %v", err)
	}
	values := s.Values()
	if values[0] != 100 || values[1] != 110 || values[2] != 120 {
		t.Errorf("Values() = %v, want sorted", values)
	}
}

func TestTimeSeries_Empty(t *testing.T) {
	var s TimeSeries
	if _, ok := s.First(); ok {
		t.Error("First() ok on empty series")
	}
	if _, ok := s.Last(); ok {
		t.Error("Last() ok on empty series")
	}
	data, err := json.Marshal(s)
	if err != nil || string(data) != "[]" {
		t.Errorf("Marshal(empty) = %s, %v", data, err)
	}
}

func TestTimeSeries_Between(t *testing.T) {
	s, _ := NewTimeSeries(points(100, 101, 102, 103, 104))

	got := s.Between(day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 3))
	if got.Len() != 3 {
		t.Errorf("Between() len = %d, want 3 (inclusive bounds)", got.Len())
	}

	if open := s.Between(time.Time{}, day0.AddDate(0, 0, 1)); open.Len() != 2 {
		t.Errorf("Between(open from) len = %d, want 2", open.Len())
	}
}

func TestTimeSeries_JSON(t *testing.T) {
	s, _ := NewTimeSeries(points(100, 110))
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded TimeSeries
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Len() != 2 || decoded.At(1).Value != 110 {
		t.Errorf("decoded = %v", decoded.Points())
	}

	bad := `[{"timestamp":"2024-02-05T00:00:00Z","value":100},{"timestamp":"2024-02-04T00:00:00Z","value":100}]`
	if err := json.Unmarshal([]byte(bad), &decoded); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("Unmarshal(unordered) error = %v, want ErrInvalidSeries", err)
	}
}

func TestIntersect(t *testing.T) {
	a, _ := NewTimeSeries(points(100, 101, 102, 103))

	// 같은 시각, 다른 타임존
	kst := time.FixedZone("KST", 9*3600)
	b, _ := NewTimeSeries([]EquityPoint{
		{Timestamp: day0.AddDate(0, 0, 1).In(kst), Value: 50},
		{Timestamp: day0.AddDate(0, 0, 3).In(kst), Value: 52},
		{Timestamp: day0.AddDate(0, 0, 9), Value: 60},
	})

	out := Intersect(a, b)
	if len(out) != 2 {
		t.Fatalf("Intersect() returned %d series", len(out))
	}
	if out[0].Len() != 2 || out[1].Len() != 2 {
		t.Errorf("lens = %d, %d, want 2, 2", out[0].Len(), out[1].Len())
	}
	if out[0].At(1).Value != 103 || out[1].At(1).Value != 52 {
		t.Errorf("aligned values = %v, %v", out[0].At(1).Value, out[1].At(1).Value)
	}

	if Intersect() != nil {
		t.Error("Intersect() with no series should be nil")
	}
}

func TestTimeRange(t *testing.T) {
	r := TimeRange{From: day0, To: day0.AddDate(0, 1, 0)}
	if !r.Valid() {
		t.Error("Valid() = false for ordered range")
	}
	if (TimeRange{From: r.To, To: r.From}).Valid() {
		t.Error("Valid() = true for reversed range")
	}
	if !(TimeRange{}).Valid() {
		t.Error("Valid() = false for open range")
	}

	kst := time.FixedZone("KST", 9*3600)
	same := TimeRange{From: day0.In(kst), To: r.To.In(kst)}
	if r.Key() != same.Key() {
		t.Errorf("Key() differs across zones: %s vs %s", r.Key(), same.Key())
	}
}

func TestBenchmarkSeries_Label(t *testing.T) {
	if got := (BenchmarkSeries{Symbol: "SPX"}).Label(); got != "SPX" {
		t.Errorf("Label() = %s, want SPX", got)
	}
	if got := (BenchmarkSeries{Name: "S&P 500", Symbol: "SPX"}).Label(); got != "S&P 500" {
		t.Errorf("Label() = %s, want S&P 500", got)
	}
}
