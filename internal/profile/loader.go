package profile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis/v13/perf/internal/risk"
)

// Load reads a YAML profile and returns it with the raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Profile, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	p, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return p, data, nil
}

// Parse decodes and validates YAML profile bytes
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}

	applyDefaults(&p)
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadOrDefault loads path, or returns Default() when path is empty
func LoadOrDefault(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}
	p, _, err := Load(path)
	return p, err
}

// Hash generates SHA256 hash from Profile (canonical JSON)
// 캐시 키에 포함: 설정이 바뀌면 캐시된 리포트 무효
func Hash(p *Profile) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

func applyDefaults(p *Profile) {
	def := Default()
	if len(p.Analysis.ConfidenceLevels) == 0 {
		p.Analysis.ConfidenceLevels = def.Analysis.ConfidenceLevels
	}
	if p.Analysis.LookbackDays == 0 {
		p.Analysis.LookbackDays = def.Analysis.LookbackDays
	}
	if p.Report.TopContributors == 0 {
		p.Report.TopContributors = def.Report.TopContributors
	}
	if p.Benchmarks == nil {
		p.Benchmarks = []BenchmarkRef{}
	}
	if p.Risk.Scenarios == nil {
		p.Risk.Scenarios = []risk.Scenario{}
	}
}
