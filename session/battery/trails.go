package battery

import "github.com/dshills/cogtest-go/session"

// Trail making: three phases (numbers, letters, alternating), each a
// short practice block followed by a test block. The proband taps a
// fixed set of on-screen blazes in order; the payload carries each
// blaze's position and glyph.
//
// Recommended engine options: a block timeout around four minutes with
// time-taken adjustment enabled, so a proband who stalls on the test
// blocks still yields a comparable total time.

func init() {
	register(Trails())
}

// Trails returns the trail-making test plan.
func Trails() session.TestPlan {
	return session.TestPlan{
		Name:       "trails",
		MakeTrials: trailsTrials,
	}
}

func trailsTrials(_ session.SessionConfig) ([]session.TrialSpec, error) {
	specs := make([]session.TrialSpec, 0, len(trailsPositions))
	i := 0
	for block := 0; block < 6; block++ {
		practice := block%2 == 0
		blockType := "test"
		count := 20
		if practice {
			blockType = "practice"
			count = 5
		}
		for trial := 0; trial < count; trial++ {
			specs = append(specs, session.TrialSpec{
				BlockNumber: block,
				TrialNumber: trial,
				BlockType:   blockType,
				Practice:    practice,
				Payload: map[string]any{
					"blaze_position": trailsPositions[i],
					"glyph":          trailsGlyphs[i],
				},
			})
			i++
		}
	}
	return specs, nil
}

// Blaze positions in screen coordinates relative to center, one per
// trial across all six blocks.
var trailsPositions = [][2]int{
	{-183, -85}, {298, 276}, {267, -207}, {104, -121}, {26, -267},
	{-203, -45}, {198, 158}, {-120, 183}, {69, -111}, {285, -112},
	{158, -268}, {-161, -195}, {-275, -162}, {-33, -28}, {94, -203},
	{-135, -276}, {-107, -142}, {131, 9}, {308, 0}, {305, 68},
	{267, 243}, {-4, 132}, {106, -52}, {-8, -127}, {162, -166},
	{-219, -17}, {-34, 101}, {-224, 106}, {20, -168}, {201, 32},
	{265, 209}, {-45, 195}, {-272, -253}, {187, -132}, {115, -308},
	{231, -238}, {292, -14}, {-298, -36}, {-143, -296}, {-145, -118},
	{278, 96}, {-239, 80}, {-178, 190}, {-55, -148}, {71, -238},
	{229, -68}, {-59, 28}, {75, 56}, {188, 144}, {25, 130},
	{259, 10}, {-265, -2}, {305, 215}, {-281, 91}, {66, -178},
	{-243, -108}, {-296, 5}, {-298, -266}, {228, -252}, {233, -44},
	{237, 194}, {278, 18}, {98, 23}, {-205, -49}, {-128, -49},
	{148, -167}, {-68, 95}, {137, 164}, {272, -185}, {-21, -307},
	{-50, -175}, {-191, 45}, {-25, 208}, {-285, 138}, {-158, -211},
}

// Glyphs per trial: digits for the number phase, letters for the letter
// phase, alternating digits and letters for the final phase.
var trailsGlyphs = []string{
	"1", "2", "3", "4", "5",
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
	"11", "12", "13", "14", "15", "16", "17", "18", "19", "20",
	"a", "b", "c", "d", "e",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j",
	"k", "l", "m", "n", "o", "p", "q", "r", "s", "t",
	"1", "a", "2", "b", "3",
	"1", "a", "2", "b", "3", "c", "4", "d", "5", "e",
	"6", "f", "7", "g", "8", "h", "9", "i", "10", "j",
}
