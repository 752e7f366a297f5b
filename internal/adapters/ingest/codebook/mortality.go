package codebook

// Mortality returns the labels of the public mortality linkage fields
func Mortality() *Codebook {
	const (
		notListed = "No - Condition not listed as a multiple cause of death"
		listed    = "Yes - Condition listed as a multiple cause of death"
		noMCOD    = "Assumed alive, under age 18, ineligible for mortality follow-up, or MCOD not available"
		notDead   = "Ineligible, under age 18, or assumed alive"
		underAge  = "Ineligible or under age 18"
	)
	mort := func(code, name string, labels map[string]string) Entry {
		return Entry{Code: code, Name: name, Category: "MORT", Labels: labels}
	}
	return New(
		mort("ELIGSTAT", "Eligibility Status for Mortality Follow-up", map[string]string{
			"1": "Eligible", "2": "Under age 18, not available for public release", "3": "Ineligible",
		}),
		mort("MORTSTAT", "Final Mortality Status", map[string]string{
			"0": "Assumed alive", "1": "Assumed deceased", ".": underAge,
		}),
		mort("UCOD_LEADING", "Underlying Leading Cause of Death", map[string]string{
			"1": "Diseases of heart", "2": "Malignant neoplasms", "3": "Chronic lower respiratory diseases",
			"4": "Accidents", "5": "Cerebrovascular diseases", "6": "Alzheimer's disease",
			"7": "Diabetes mellitus", "8": "Influenza and pneumonia", "9": "Nephritis, nephrotic syndrome and nephrosis",
			"10": "All other causes", ".": "Missing",
		}),
		mort("DIABETES", "Diabetes Flag from Multiple Cause of Death (MCOD)", map[string]string{
			"0": notListed, "1": listed, ".": noMCOD,
		}),
		mort("HYPERTEN", "Hypertension Flag from Multiple Cause of Death (MCOD)", map[string]string{
			"0": notListed, "1": listed, ".": noMCOD,
		}),
		mort("DODQTR", "Quarter of Death: NHIS only", map[string]string{
			"1": "January-March", "2": "April-June", "3": "July-September", "4": "October-December", ".": notDead,
		}),
		mort("DODYEAR", "Year of Death: NHIS only", map[string]string{".": notDead}),
		mort("WGT_NEW", "Weight Adjusted for Ineligible Respondents - Person-level Sample Weight", map[string]string{".": "Missing"}),
		mort("SA_WGT_NEW", "Weight Adjusted for Ineligible Respondents - Sample Adult Sample Weight", map[string]string{".": "Missing"}),
		mort("PERMTH_INT", "Number of Person Months of Follow-up from NHANES interview date", map[string]string{".": underAge}),
		mort("PERMTH_EXM", "Number of Person Months of Follow-up from NHANES Mobile Examination Center (MEC) date", map[string]string{".": underAge}),
	)
}
