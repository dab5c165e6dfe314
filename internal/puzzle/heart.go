package puzzle

// Piece is where a heart piece sits in the heart visualization.
// Offsets are percentages of the heart's bounding box.
type Piece struct {
	Top    string `json:"top"`
	Left   string `json:"left"`
	Rotate string `json:"rotate"`
}

var heartLayout = [Count]Piece{
	{Top: "0%", Left: "25%", Rotate: "-45deg"},
	{Top: "0%", Left: "55%", Rotate: "45deg"},
	{Top: "20%", Left: "10%", Rotate: "-20deg"},
	{Top: "20%", Left: "70%", Rotate: "20deg"},
	{Top: "40%", Left: "25%", Rotate: "0deg"},
	{Top: "40%", Left: "55%", Rotate: "0deg"},
}

// HeartLayout returns the position of each heart piece, index-aligned to the catalog.
func HeartLayout() [Count]Piece {
	return heartLayout
}
