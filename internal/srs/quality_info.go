package srs

// QualityInfo is the presentation metadata of a rating button.
type QualityInfo struct {
	Quality     Quality `json:"quality"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	Shortcut    string  `json:"shortcut"`
}

var qualityTable = [...]QualityInfo{
	{QualityAgain, "Esqueci", "Não lembrei da resposta", "#ef4444", "x-circle", "1"},
	{QualityWrong, "Errei", "Lembrei só depois de ver a resposta", "#f97316", "alert-circle", "2"},
	{QualityHard, "Difícil", "Lembrei com muito esforço", "#eab308", "minus-circle", "3"},
	{QualityGood, "Bom", "Lembrei com algum esforço", "#22c55e", "check-circle", "4"},
	{QualityEasy, "Fácil", "Lembrei na hora", "#3b82f6", "zap", "5"},
}

// QualityInfoFor looks up the metadata of q.
func QualityInfoFor(q Quality) (QualityInfo, error) {
	if err := q.Validate(); err != nil {
		return QualityInfo{}, err
	}
	return qualityTable[q], nil
}

// QualityTable returns the metadata of every rating, worst first.
func QualityTable() []QualityInfo {
	out := make([]QualityInfo, len(qualityTable))
	copy(out, qualityTable[:])
	return out
}
