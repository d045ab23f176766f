package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgx-risk-server/internal/domain"
)

func variantsWithStars(stars ...string) []domain.Variant {
	variants := make([]domain.Variant, 0, len(stars))
	for _, star := range stars {
		variants = append(variants, domain.Variant{Gene: "CYP2C19", StarAllele: star})
	}
	return variants
}

func TestDiplotypeResolverService_Resolve(t *testing.T) {
	resolver := NewDiplotypeResolverService(newTestLogger())

	tests := []struct {
		name     string
		variants []domain.Variant
		want     domain.Diplotype
	}{
		{
			name:     "no variants is wild type",
			variants: nil,
			want:     domain.DiplotypeWildType,
		},
		{
			name:     "variants without star labels is wild type",
			variants: variantsWithStars("", "", ""),
			want:     domain.DiplotypeWildType,
		},
		{
			name:     "single label once is heterozygous with wild type",
			variants: variantsWithStars("*2"),
			want:     "*1/*2",
		},
		{
			name:     "single label twice is homozygous",
			variants: variantsWithStars("*2", "*2"),
			want:     "*2/*2",
		},
		{
			name:     "explicit wild-type label stays wild type",
			variants: variantsWithStars("*1"),
			want:     domain.DiplotypeWildType,
		},
		{
			name:     "two distinct labels rank ordered",
			variants: variantsWithStars("*17", "*2"),
			want:     "*2/*17",
		},
		{
			name:     "file order does not change the result",
			variants: variantsWithStars("*2", "*17"),
			want:     "*2/*17",
		},
		{
			name:     "three distinct labels keep the two lowest ranks",
			variants: variantsWithStars("*17", "*3", "*2"),
			want:     "*2/*3",
		},
		{
			name:     "letter suffixes break numeric ties",
			variants: variantsWithStars("*3B", "*3A"),
			want:     "*3A/*3B",
		},
		{
			name:     "numeric rank not lexicographic",
			variants: variantsWithStars("*10", "*2"),
			want:     "*2/*10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Resolve(tt.variants))
		})
	}
}

func TestNormalizeDiplotype(t *testing.T) {
	tests := []struct {
		name  string
		input domain.Diplotype
		want  domain.Diplotype
	}{
		{"already ordered", "*2/*17", "*2/*17"},
		{"reversed", "*17/*2", "*2/*17"},
		{"idempotent on normalized", "*1/*1", "*1/*1"},
		{"unknown sentinel untouched", domain.DiplotypeUnknown, domain.DiplotypeUnknown},
		{"malformed untouched", "*2", "*2"},
		{"empty untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDiplotype(tt.input)
			assert.Equal(t, tt.want, got)
			// Normalization is idempotent.
			assert.Equal(t, got, NormalizeDiplotype(got))
		})
	}
}

func TestAlleleLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"*2", "*17", true},
		{"*17", "*2", false},
		{"*3A", "*3B", true},
		{"*3", "*3A", true}, // shorter label sorts first on tie
		{"*2", "*X", true},  // numeric ranks before symbolic
		{"*X", "*2", false},
		{"*A", "*B", true}, // both symbolic: lexicographic
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, alleleLess(tt.a, tt.b), "alleleLess(%q, %q)", tt.a, tt.b)
	}
}
