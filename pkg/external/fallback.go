package external

import (
	"context"
	"fmt"

	"github.com/pgx-risk-server/internal/domain"
)

// StaticExplainer renders explanations from fixed templates keyed by gene
// and risk label. It is both the standalone provider when no explanation
// service is configured and the substitute used when the live service fails
// or times out. It never errs.
type StaticExplainer struct{}

// NewStaticExplainer creates the template-backed explanation provider.
func NewStaticExplainer() *StaticExplainer {
	return &StaticExplainer{}
}

// geneMechanisms describes, per gene, what the gene product does to drugs.
var geneMechanisms = map[string]string{
	"CYP2D6":  "CYP2D6 encodes a hepatic cytochrome P450 enzyme that metabolizes many opioids and antidepressants, including prodrugs that require activation.",
	"CYP2C19": "CYP2C19 encodes a hepatic cytochrome P450 enzyme responsible for activating or clearing several antiplatelet agents, proton pump inhibitors and antidepressants.",
	"CYP2C9":  "CYP2C9 encodes a hepatic cytochrome P450 enzyme that clears narrow-therapeutic-index drugs such as warfarin and phenytoin.",
	"SLCO1B1": "SLCO1B1 encodes the OATP1B1 hepatic uptake transporter that moves statins from blood into the liver; reduced function raises circulating drug levels.",
	"TPMT":    "TPMT encodes thiopurine S-methyltransferase, which inactivates thiopurine drugs; reduced activity shunts the drugs toward cytotoxic metabolites.",
	"DPYD":    "DPYD encodes dihydropyrimidine dehydrogenase, the rate-limiting enzyme for fluoropyrimidine catabolism.",
}

// labelSummaries gives the per-risk-label summary sentence; %s is the drug.
var labelSummaries = map[domain.RiskLabel]string{
	domain.RiskSafe:         "The patient's genotype predicts a typical response to %s at standard doses.",
	domain.RiskAdjustDosage: "The patient's genotype predicts an altered response to %s; dosing should be adjusted or monitored.",
	domain.RiskToxic:        "The patient's genotype predicts an elevated risk of toxicity from %s at standard doses.",
	domain.RiskIneffective:  "The patient's genotype predicts that %s is unlikely to be effective at standard doses.",
	domain.RiskUnknown:      "There is not enough pharmacogenomic evidence to predict this patient's response to %s.",
}

// labelImpacts gives the per-risk-label clinical impact sentence.
var labelImpacts = map[domain.RiskLabel]string{
	domain.RiskSafe:         "No genotype-driven change to therapy is indicated; follow standard prescribing practice.",
	domain.RiskAdjustDosage: "Genotype-guided dose adjustment or enhanced monitoring is indicated before or shortly after starting therapy.",
	domain.RiskToxic:        "Avoiding the drug or using a strongly reduced dose is indicated to prevent serious adverse effects.",
	domain.RiskIneffective:  "Selecting an alternative agent is indicated, since therapeutic benefit is unlikely.",
	domain.RiskUnknown:      "Standard clinical judgment applies; pharmacogenomic data neither supports nor contraindicates this drug.",
}

// Explain renders static explanation text for the decided assessment.
// It honors ctx cancellation for interface symmetry but performs no I/O.
func (f *StaticExplainer) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.render(req), nil
}

func (f *StaticExplainer) render(req domain.ExplanationRequest) *domain.Explanation {
	summary, ok := labelSummaries[req.RiskLabel]
	if !ok {
		summary = labelSummaries[domain.RiskUnknown]
	}
	impact, ok := labelImpacts[req.RiskLabel]
	if !ok {
		impact = labelImpacts[domain.RiskUnknown]
	}

	mechanism, ok := geneMechanisms[req.Gene]
	if !ok {
		mechanism = fmt.Sprintf("The %s genotype %s influences how this patient processes %s.",
			req.Gene, req.Diplotype.String(), req.Drug)
	} else {
		mechanism = fmt.Sprintf("%s The patient's %s diplotype corresponds to a %s phenotype.",
			mechanism, req.Diplotype.String(), req.Phenotype.Description())
	}

	return &domain.Explanation{
		Summary:        fmt.Sprintf(summary, req.Drug),
		Mechanism:      mechanism,
		ClinicalImpact: impact,
		Source:         "fallback",
	}
}
