// Package service implements the variant-to-risk pipeline: extraction,
// diplotype resolution, phenotype classification and risk assessment.
package service

import "github.com/pgx-risk-server/internal/domain"

// targetGenes is the fixed allow-list of pharmacogenes the extractor keeps.
var targetGenes = []string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"}

// drugPrimaryGene maps each supported drug (uppercased) to the gene whose
// genotype drives its risk classification.
var drugPrimaryGene = map[string]string{
	"CLOPIDOGREL":    "CYP2C19",
	"OMEPRAZOLE":     "CYP2C19",
	"ESCITALOPRAM":   "CYP2C19",
	"CODEINE":        "CYP2D6",
	"TRAMADOL":       "CYP2D6",
	"AMITRIPTYLINE":  "CYP2D6",
	"WARFARIN":       "CYP2C9",
	"PHENYTOIN":      "CYP2C9",
	"SIMVASTATIN":    "SLCO1B1",
	"AZATHIOPRINE":   "TPMT",
	"MERCAPTOPURINE": "TPMT",
	"FLUOROURACIL":   "DPYD",
	"CAPECITABINE":   "DPYD",
}

// diplotypePhenotypes holds the per-gene guideline tables mapping a
// rank-normalized diplotype to its metabolizer phenotype. CYP2C19, CYP2D6,
// CYP2C9 and TPMT are fully enumerated and must only ever be resolved here;
// their tables encode exceptions (*2/*17 -> IM, not a rapid/poor average)
// that an additive model would get wrong. SLCO1B1 and DPYD tables are
// partial and back onto the activity-score model below.
var diplotypePhenotypes = map[string]map[domain.Diplotype]domain.Phenotype{
	"CYP2C19": {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2":   domain.PhenotypeIntermediate,
		"*1/*3":   domain.PhenotypeIntermediate,
		"*2/*2":   domain.PhenotypePoor,
		"*2/*3":   domain.PhenotypePoor,
		"*3/*3":   domain.PhenotypePoor,
		"*1/*17":  domain.PhenotypeRapid,
		"*17/*17": domain.PhenotypeUltrarapid,
		"*2/*17":  domain.PhenotypeIntermediate,
		"*3/*17":  domain.PhenotypeIntermediate,
	},
	"CYP2D6": {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2":   domain.PhenotypeNormal,
		"*2/*2":   domain.PhenotypeNormal,
		"*1/*4":   domain.PhenotypeIntermediate,
		"*1/*5":   domain.PhenotypeIntermediate,
		"*1/*10":  domain.PhenotypeIntermediate,
		"*1/*41":  domain.PhenotypeNormal,
		"*2/*4":   domain.PhenotypeIntermediate,
		"*4/*4":   domain.PhenotypePoor,
		"*4/*5":   domain.PhenotypePoor,
		"*5/*5":   domain.PhenotypePoor,
		"*4/*10":  domain.PhenotypeIntermediate,
		"*10/*10": domain.PhenotypeIntermediate,
		"*10/*41": domain.PhenotypeIntermediate,
		"*41/*41": domain.PhenotypeIntermediate,
	},
	"CYP2C9": {
		"*1/*1": domain.PhenotypeNormal,
		"*1/*2": domain.PhenotypeIntermediate,
		"*1/*3": domain.PhenotypeIntermediate,
		"*2/*2": domain.PhenotypeIntermediate,
		"*2/*3": domain.PhenotypePoor,
		"*3/*3": domain.PhenotypePoor,
	},
	"TPMT": {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2":   domain.PhenotypeIntermediate,
		"*1/*3A":  domain.PhenotypeIntermediate,
		"*1/*3B":  domain.PhenotypeIntermediate,
		"*1/*3C":  domain.PhenotypeIntermediate,
		"*2/*2":   domain.PhenotypePoor,
		"*2/*3A":  domain.PhenotypePoor,
		"*3A/*3A": domain.PhenotypePoor,
		"*3A/*3C": domain.PhenotypePoor,
		"*3C/*3C": domain.PhenotypePoor,
	},
	"SLCO1B1": {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*5":   domain.PhenotypeIntermediate,
		"*1/*15":  domain.PhenotypeIntermediate,
		"*5/*5":   domain.PhenotypePoor,
		"*5/*15":  domain.PhenotypePoor,
		"*15/*15": domain.PhenotypePoor,
	},
	"DPYD": {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2A":  domain.PhenotypeIntermediate,
		"*1/*13":  domain.PhenotypeIntermediate,
		"*2A/*2A": domain.PhenotypePoor,
		"*2A/*13": domain.PhenotypePoor,
		"*13/*13": domain.PhenotypePoor,
	},
}

// alleleFunctionScores holds the additive activity-score model used only for
// SLCO1B1 and DPYD, whose full allele combinatorics are not enumerated above.
// normal function = 1.0, decreased = 0.5, no function = 0. Alleles absent
// from these maps have no score: the classifier must return Unknown rather
// than assume a default.
var alleleFunctionScores = map[string]map[string]float64{
	"SLCO1B1": {
		"*1":  1.0,
		"*1A": 1.0,
		"*1B": 1.0,
		"*5":  0.0,
		"*15": 0.0,
		"*17": 0.5,
	},
	"DPYD": {
		"*1":  1.0,
		"*2A": 0.0,
		"*4":  1.0,
		"*5":  0.5,
		"*9A": 1.0,
		"*13": 0.0,
	},
}

// activityScoreGenes restricts the fallback model to the two genes it is
// calibrated for. The fully enumerated genes never fall through to it.
var activityScoreGenes = map[string]bool{
	"SLCO1B1": true,
	"DPYD":    true,
}

// Activity-score classification thresholds: sum >= 2 is normal,
// 1 <= sum < 2 is intermediate, sum < 1 is poor.
const (
	activityScoreNormal       = 2.0
	activityScoreIntermediate = 1.0
)

// riskEntry is one per-drug table cell. Severity is deliberately absent:
// it is always recomputed from the canonical label->severity map.
type riskEntry struct {
	Label      domain.RiskLabel
	Confidence float64
}

// drugRiskTables maps each supported drug (uppercased) to its
// phenotype->risk table. A phenotype missing from a drug's table is not
// clinically meaningful for that drug's gene and resolves to Unknown.
var drugRiskTables = map[string]map[domain.Phenotype]riskEntry{
	"CLOPIDOGREL": {
		domain.PhenotypePoor:         {domain.RiskIneffective, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
		domain.PhenotypeRapid:        {domain.RiskSafe, 0.90},
		domain.PhenotypeUltrarapid:   {domain.RiskSafe, 0.85},
	},
	"OMEPRAZOLE": {
		domain.PhenotypePoor:         {domain.RiskAdjustDosage, 0.85},
		domain.PhenotypeIntermediate: {domain.RiskSafe, 0.85},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.90},
		domain.PhenotypeRapid:        {domain.RiskAdjustDosage, 0.80},
		domain.PhenotypeUltrarapid:   {domain.RiskIneffective, 0.85},
	},
	"ESCITALOPRAM": {
		domain.PhenotypePoor:         {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeIntermediate: {domain.RiskSafe, 0.80},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
		domain.PhenotypeRapid:        {domain.RiskAdjustDosage, 0.75},
		domain.PhenotypeUltrarapid:   {domain.RiskIneffective, 0.80},
	},
	"CODEINE": {
		domain.PhenotypePoor:         {domain.RiskIneffective, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.85},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
		domain.PhenotypeUltrarapid:   {domain.RiskToxic, 0.95},
	},
	"TRAMADOL": {
		domain.PhenotypePoor:         {domain.RiskIneffective, 0.90},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.85},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
		domain.PhenotypeUltrarapid:   {domain.RiskToxic, 0.90},
	},
	"AMITRIPTYLINE": {
		domain.PhenotypePoor:         {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.80},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.90},
		domain.PhenotypeUltrarapid:   {domain.RiskIneffective, 0.85},
	},
	"WARFARIN": {
		domain.PhenotypePoor:         {domain.RiskAdjustDosage, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"PHENYTOIN": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.90},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.85},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"SIMVASTATIN": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.90},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.85},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"AZATHIOPRINE": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"MERCAPTOPURINE": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"FLUOROURACIL": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
	"CAPECITABINE": {
		domain.PhenotypePoor:         {domain.RiskToxic, 0.95},
		domain.PhenotypeIntermediate: {domain.RiskAdjustDosage, 0.90},
		domain.PhenotypeNormal:       {domain.RiskSafe, 0.95},
	},
}

// actionTemplates are the generic clinical action strings keyed by risk
// label. %s is the drug name.
var actionTemplates = map[domain.RiskLabel]string{
	domain.RiskSafe:         "Standard dosing of %s is appropriate based on the patient's genotype.",
	domain.RiskAdjustDosage: "Adjust the dose of %s or increase monitoring; consult current dosing guidelines for genotype-guided dosing.",
	domain.RiskToxic:        "Avoid %s; high risk of serious toxicity. Select an alternative agent not affected by this genotype.",
	domain.RiskIneffective:  "Consider an alternative to %s; the patient's genotype predicts reduced or absent therapeutic effect.",
	domain.RiskUnknown:      "Pharmacogenomic evidence for %s is insufficient; apply standard clinical judgment and monitoring.",
}

// drugRationales holds drug-specific rationale templates keyed by
// (drug, risk label). Entries here take precedence over the generic
// per-label rationale patterns.
var drugRationales = map[string]map[domain.RiskLabel]string{
	"CLOPIDOGREL": {
		domain.RiskAdjustDosage: "Reduced CYP2C19 activity impairs conversion of clopidogrel to its active metabolite, lowering antiplatelet effect; consider prasugrel or ticagrelor, or adjusted dosing with platelet function monitoring.",
		domain.RiskIneffective:  "Absent CYP2C19 activity prevents bioactivation of clopidogrel; antiplatelet protection is unlikely and an alternative agent such as prasugrel or ticagrelor is recommended.",
	},
	"CODEINE": {
		domain.RiskToxic:       "Ultrarapid CYP2D6 activity converts codeine to morphine faster than normal, risking life-threatening respiratory depression; codeine is contraindicated.",
		domain.RiskIneffective: "Absent CYP2D6 activity prevents conversion of codeine to morphine, so adequate analgesia is unlikely; select a non-tramadol alternative opioid.",
	},
	"WARFARIN": {
		domain.RiskAdjustDosage: "Reduced CYP2C9 activity slows warfarin clearance and raises bleeding risk at standard doses; initiate at a reduced dose with close INR monitoring.",
	},
	"SIMVASTATIN": {
		domain.RiskToxic:        "Markedly reduced SLCO1B1 transporter function elevates simvastatin plasma exposure and the risk of severe myopathy; prescribe an alternative statin or the lowest effective dose.",
		domain.RiskAdjustDosage: "Decreased SLCO1B1 transporter function increases simvastatin exposure and myopathy risk; limit the dose or consider an alternative statin.",
	},
	"AZATHIOPRINE": {
		domain.RiskToxic:        "Absent TPMT activity causes accumulation of cytotoxic thioguanine nucleotides, with a high risk of severe, potentially fatal myelosuppression; drastically reduce dose or select an alternative.",
		domain.RiskAdjustDosage: "Reduced TPMT activity increases thioguanine nucleotide exposure; start at a reduced azathioprine dose with frequent blood-count monitoring.",
	},
	"MERCAPTOPURINE": {
		domain.RiskToxic:        "Absent TPMT activity leads to thioguanine nucleotide accumulation and severe myelosuppression at standard mercaptopurine doses; substantial dose reduction is required.",
		domain.RiskAdjustDosage: "Reduced TPMT activity warrants a lowered mercaptopurine starting dose with close hematologic monitoring.",
	},
	"FLUOROURACIL": {
		domain.RiskToxic:        "DPD deficiency severely impairs fluorouracil catabolism, exposing the patient to life-threatening toxicity; fluoropyrimidine therapy should be avoided or started at a strongly reduced dose.",
		domain.RiskAdjustDosage: "Partial DPD deficiency reduces fluorouracil clearance; begin with a reduced dose and titrate by toxicity.",
	},
	"CAPECITABINE": {
		domain.RiskToxic:        "Capecitabine is a fluorouracil prodrug; DPD deficiency exposes the patient to life-threatening fluoropyrimidine toxicity and an alternative regimen should be used.",
		domain.RiskAdjustDosage: "Partial DPD deficiency reduces clearance of capecitabine's active metabolite; begin at a reduced dose with toxicity-guided titration.",
	},
}
