package morph

import "strings"

type verbForms struct {
	past       string
	participle string
	third      string
	gerund     string
}

var irregularVerbs = map[string]verbForms{
	"be":     {past: "was", participle: "been", third: "is", gerund: "being"},
	"have":   {past: "had", participle: "had", third: "has"},
	"do":     {past: "did", participle: "done", third: "does"},
	"go":     {past: "went", participle: "gone", third: "goes"},
	"eat":    {past: "ate", participle: "eaten"},
	"run":    {past: "ran", participle: "run"},
	"see":    {past: "saw", participle: "seen"},
	"take":   {past: "took", participle: "taken"},
	"give":   {past: "gave", participle: "given"},
	"write":  {past: "wrote", participle: "written"},
	"drive":  {past: "drove", participle: "driven"},
	"ride":   {past: "rode", participle: "ridden"},
	"speak":  {past: "spoke", participle: "spoken"},
	"break":  {past: "broke", participle: "broken"},
	"choose": {past: "chose", participle: "chosen"},
	"fall":   {past: "fell", participle: "fallen"},
	"fly":    {past: "flew", participle: "flown", third: "flies"},
	"know":   {past: "knew", participle: "known"},
	"grow":   {past: "grew", participle: "grown"},
	"throw":  {past: "threw", participle: "thrown"},
	"draw":   {past: "drew", participle: "drawn"},
	"swim":   {past: "swam", participle: "swum"},
	"sing":   {past: "sang", participle: "sung"},
	"drink":  {past: "drank", participle: "drunk"},
	"begin":  {past: "began", participle: "begun", gerund: "beginning"},
	"come":   {past: "came", participle: "come"},
	"become": {past: "became", participle: "become"},
	"get":    {past: "got", participle: "gotten"},
	"forget": {past: "forgot", participle: "forgotten", gerund: "forgetting"},
	"make":   {past: "made", participle: "made"},
	"say":    {past: "said", participle: "said"},
	"tell":   {past: "told", participle: "told"},
	"find":   {past: "found", participle: "found"},
	"think":  {past: "thought", participle: "thought"},
	"bring":  {past: "brought", participle: "brought"},
	"buy":    {past: "bought", participle: "bought"},
	"catch":  {past: "caught", participle: "caught"},
	"teach":  {past: "taught", participle: "taught"},
	"fight":  {past: "fought", participle: "fought"},
	"seek":   {past: "sought", participle: "sought"},
	"sleep":  {past: "slept", participle: "slept"},
	"keep":   {past: "kept", participle: "kept"},
	"feel":   {past: "felt", participle: "felt"},
	"leave":  {past: "left", participle: "left"},
	"meet":   {past: "met", participle: "met"},
	"sit":    {past: "sat", participle: "sat"},
	"stand":  {past: "stood", participle: "stood"},
	"understand": {past: "understood", participle: "understood"},
	"hear":   {past: "heard", participle: "heard"},
	"hold":   {past: "held", participle: "held"},
	"lose":   {past: "lost", participle: "lost"},
	"build":  {past: "built", participle: "built"},
	"send":   {past: "sent", participle: "sent"},
	"spend":  {past: "spent", participle: "spent"},
	"pay":    {past: "paid", participle: "paid"},
	"lay":    {past: "laid", participle: "laid"},
	"lead":   {past: "led", participle: "led"},
	"read":   {past: "read", participle: "read"},
	"feed":   {past: "fed", participle: "fed"},
	"win":    {past: "won", participle: "won"},
	"dig":    {past: "dug", participle: "dug"},
	"sell":   {past: "sold", participle: "sold"},
	"shine":  {past: "shone", participle: "shone"},
	"shoot":  {past: "shot", participle: "shot"},
	"put":    {past: "put", participle: "put"},
	"cut":    {past: "cut", participle: "cut"},
	"hit":    {past: "hit", participle: "hit"},
	"let":    {past: "let", participle: "let"},
	"set":    {past: "set", participle: "set"},
	"shut":   {past: "shut", participle: "shut"},
	"hurt":   {past: "hurt", participle: "hurt"},
	"cost":   {past: "cost", participle: "cost"},
	"wake":   {past: "woke", participle: "woken"},
	"wear":   {past: "wore", participle: "worn"},
	"tear":   {past: "tore", participle: "torn"},
	"steal":  {past: "stole", participle: "stolen"},
	"freeze": {past: "froze", participle: "frozen"},
	"hide":   {past: "hid", participle: "hidden"},
	"bite":   {past: "bit", participle: "bitten"},
	"rise":   {past: "rose", participle: "risen"},
	"shake":  {past: "shook", participle: "shaken"},
	"blow":   {past: "blew", participle: "blown"},
	"bear":   {past: "bore", participle: "borne"},
	"swear":  {past: "swore", participle: "sworn"},
	"ring":   {past: "rang", participle: "rung"},
	"sink":   {past: "sank", participle: "sunk"},
	"spin":   {past: "spun", participle: "spun"},
	"stick":  {past: "stuck", participle: "stuck"},
	"strike": {past: "struck", participle: "struck"},
	"swing":  {past: "swung", participle: "swung"},
	"light":  {past: "lit", participle: "lit"},
	"slide":  {past: "slid", participle: "slid"},
	"mean":   {past: "meant", participle: "meant"},
	"dream":  {past: "dreamt", participle: "dreamt"},
}

var irregularPlurals = map[string]string{
	"child":  "children",
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"mouse":  "mice",
	"goose":  "geese",
	"foot":   "feet",
	"tooth":  "teeth",
	"ox":     "oxen",
	"sheep":  "sheep",
	"fish":   "fish",
	"deer":   "deer",
	"moose":  "moose",
	"series": "series",
	"cactus": "cacti",
	"radius": "radii",
	"crisis": "crises",
	"photo":  "photos",
	"piano":  "pianos",
}

var fToVes = map[string]bool{
	"leaf":  true,
	"loaf":  true,
	"wolf":  true,
	"knife": true,
	"wife":  true,
	"life":  true,
	"half":  true,
	"shelf": true,
	"thief": true,
	"calf":  true,
	"elf":   true,
	"self":  true,
}

var irregularAdjectives = map[string][2]string{
	"good":   {"better", "best"},
	"well":   {"better", "best"},
	"bad":    {"worse", "worst"},
	"badly":  {"worse", "worst"},
	"far":    {"farther", "farthest"},
	"little": {"less", "least"},
	"many":   {"more", "most"},
	"much":   {"more", "most"},
	"old":    {"older", "oldest"},
}

// Lemmatize reverses the irregular tables: "ate" -> ("eat", "VERB"), "mice" -> ("mouse", "NOUN")
func Lemmatize(word string) (string, string, bool) {
	w := strings.ToLower(word)
	if lemma, ok := reverseVerbs[w]; ok {
		return lemma, "VERB", true
	}
	if lemma, ok := reversePlurals[w]; ok {
		return lemma, "NOUN", true
	}
	return "", "", false
}

var reverseVerbs, reversePlurals = buildReverseTables()

func buildReverseTables() (map[string]string, map[string]string) {
	verbs := make(map[string]string, len(irregularVerbs)*3)
	for lemma, f := range irregularVerbs {
		for _, form := range []string{f.past, f.participle, f.third, f.gerund} {
			if form == "" {
				continue
			}
			if _, taken := verbs[form]; !taken {
				verbs[form] = lemma
			}
		}
	}
	// "be" has more surfaces than the table carries
	for _, form := range []string{"am", "are", "were"} {
		verbs[form] = "be"
	}

	plurals := make(map[string]string, len(irregularPlurals))
	for lemma, plural := range irregularPlurals {
		if plural != lemma {
			plurals[plural] = lemma
		}
	}
	return verbs, plurals
}
