package redact

import "strings"

// medicalEponyms lists lowercase medical terms that look like person names:
// disease and anatomical eponyms plus common brand-name drugs. A name-shaped
// match containing any of these words is left untouched. The set is read-only
// after init and safe for unsynchronized concurrent reads.
var medicalEponyms = buildEponymSet([]string{
	// disease eponyms
	"parkinson", "parkinsons", "alzheimer", "alzheimers", "hodgkin",
	"hodgkins", "crohn", "crohns", "addison", "addisons", "cushing",
	"cushings", "graves", "huntington", "huntingtons", "tourette",
	"tourettes", "asperger", "aspergers", "raynaud", "raynauds", "sjogren",
	"sjogrens", "behcet", "behcets", "kawasaki", "marfan", "turner",
	"klinefelter", "duchenne", "becker", "guillain", "barre", "wernicke",
	"korsakoff", "wilson", "wilsons", "paget", "pagets", "barrett",
	"barretts", "bell", "bells", "lou", "gehrig", "gehrigs", "hashimoto",
	"hashimotos", "meniere", "menieres", "dupuytren", "dupuytrens",
	"peyronie", "scheuermann", "osgood", "schlatter", "ewing", "ewings",
	"burkitt", "burkitts", "wilms", "kaposi", "kaposis", "still", "stills",
	"whipple", "whipples", "zollinger", "ellison", "conn", "conns",
	"down", "downs", "edwards", "patau", "prader", "willi", "angelman",
	// anatomical and clinical eponyms
	"achilles", "fallopian", "eustachian", "bartholin", "langerhans",
	"purkinje", "golgi", "schwann", "merkel", "babinski", "glasgow",
	"apgar", "foley", "heimlich", "broca", "mcburney",
	"virchow", "bowman", "henle", "willis", "monro", "kernig", "brudzinski",
	"homans", "murphy", "murphys", "romberg", "trendelenburg",
	// brand-name drugs
	"tylenol", "advil", "motrin", "aleve", "benadryl", "claritin",
	"zyrtec", "lipitor", "crestor", "zoloft", "prozac", "lexapro",
	"xanax", "valium", "ativan", "ambien", "viagra", "cialis",
	"metformin", "lisinopril", "coumadin", "warfarin", "heparin",
	"lasix", "synthroid", "nexium", "prilosec", "plavix", "eliquis",
	"xarelto", "humira", "enbrel", "remicade", "keytruda", "ozempic",
	"wegovy", "januvia", "jardiance", "augmentin", "amoxil", "zithromax",
	"cipro", "levaquin", "flagyl", "bactrim", "keflex", "vancomycin",
})

func buildEponymSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		set[strings.ToLower(term)] = struct{}{}
	}
	return set
}
