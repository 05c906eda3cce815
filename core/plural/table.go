// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package plural

// Expressions shared by several languages.
const (
	exprNone     = "0"
	exprOneOther = "n != 1"
	exprFrench   = "n > 1"
	exprEastSlav = "n%10==1 && n%100!=11 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2"
	exprCzech    = "n==1 ? 0 : n>=2 && n<=4 ? 1 : 2"
)

// Slot labels, in the order the translations are stored.
var (
	formsOther         = []string{"other"}
	formsOneOther      = []string{"one", "other"}
	formsOneFewMany    = []string{"one", "few", "many"}
	formsOneFewOther   = []string{"one", "few", "other"}
	formsOneTwoFewOthr = []string{"one", "two", "few", "other"}
	formsSixCategories = []string{"zero", "one", "two", "few", "many", "other"}
)

// builtin is the fixed registry. Keys are normalized by [Canonical] when the
// resolver is built, so a region-specific rule such as pt-PT wins over the
// rule for its base language.
var builtin = []Rule{
	// No plural distinction.
	{Locale: "ja", Forms: formsOther, Expression: exprNone},
	{Locale: "zh", Forms: formsOther, Expression: exprNone},
	{Locale: "ko", Forms: formsOther, Expression: exprNone},
	{Locale: "vi", Forms: formsOther, Expression: exprNone},
	{Locale: "th", Forms: formsOther, Expression: exprNone},
	{Locale: "id", Forms: formsOther, Expression: exprNone},
	{Locale: "ms", Forms: formsOther, Expression: exprNone},
	{Locale: "km", Forms: formsOther, Expression: exprNone},
	{Locale: "lo", Forms: formsOther, Expression: exprNone},
	{Locale: "my", Forms: formsOther, Expression: exprNone},

	// Singular for exactly one.
	{Locale: "en", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "de", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "nl", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "sv", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "da", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "nb", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "nn", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "no", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "fo", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "fy", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "lb", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "af", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "fi", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "et", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "hu", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "es", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "it", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ca", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "gl", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "eu", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "pt-PT", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "el", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "he", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "tr", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "az", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "kk", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ky", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "bg", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "sq", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ka", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "mn", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ur", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ta", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "te", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ml", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "mr", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "ne", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "sw", Forms: formsOneOther, Expression: exprOneOther},
	{Locale: "eo", Forms: formsOneOther, Expression: exprOneOther},

	// Singular for zero and one.
	{Locale: "fr", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "oc", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "pt", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "hy", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "hi", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "bn", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "fa", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "fil", Forms: formsOneOther, Expression: exprFrench},
	{Locale: "am", Forms: formsOneOther, Expression: exprFrench},

	{Locale: "is", Forms: formsOneOther, Expression: "n%10!=1 || n%100==11"},
	{Locale: "mk", Forms: formsOneOther, Expression: "n%10==1 && n%100!=11 ? 0 : 1"},

	// Slavic and Baltic.
	{Locale: "ru", Forms: formsOneFewMany, Expression: exprEastSlav},
	{Locale: "uk", Forms: formsOneFewMany, Expression: exprEastSlav},
	{Locale: "be", Forms: formsOneFewMany, Expression: exprEastSlav},
	{Locale: "sr", Forms: formsOneFewOther, Expression: exprEastSlav},
	{Locale: "hr", Forms: formsOneFewOther, Expression: exprEastSlav},
	{Locale: "bs", Forms: formsOneFewOther, Expression: exprEastSlav},
	{Locale: "pl", Forms: formsOneFewMany, Expression: "n==1 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2"},
	{Locale: "cs", Forms: formsOneFewOther, Expression: exprCzech},
	{Locale: "sk", Forms: formsOneFewOther, Expression: exprCzech},
	{Locale: "sl", Forms: formsOneTwoFewOthr, Expression: "n%100==1 ? 0 : n%100==2 ? 1 : n%100==3 || n%100==4 ? 2 : 3"},
	{Locale: "lt", Forms: formsOneFewOther, Expression: "n%10==1 && n%100!=11 ? 0 : n%10>=2 && (n%100<10 || n%100>=20) ? 1 : 2"},
	{Locale: "lv", Forms: []string{"one", "other", "zero"}, Expression: "n%10==1 && n%100!=11 ? 0 : n != 0 ? 1 : 2"},
	{Locale: "ro", Forms: formsOneFewOther, Expression: "n==1 ? 0 : (n==0 || (n%100 > 0 && n%100 < 20)) ? 1 : 2"},

	// Celtic, Semitic and others with many forms.
	{Locale: "ga", Forms: []string{"one", "two", "few", "many", "other"}, Expression: "n==1 ? 0 : n==2 ? 1 : n<7 ? 2 : n<11 ? 3 : 4"},
	{Locale: "gd", Forms: formsOneTwoFewOthr, Expression: "(n==1 || n==11) ? 0 : (n==2 || n==12) ? 1 : (n > 2 && n < 20) ? 2 : 3"},
	{Locale: "cy", Forms: formsSixCategories, Expression: "n==0 ? 0 : n==1 ? 1 : n==2 ? 2 : n==3 ? 3 : n==6 ? 4 : 5"},
	{Locale: "mt", Forms: []string{"one", "few", "many", "other"}, Expression: "n==1 ? 0 : n==0 || (n%100>1 && n%100<11) ? 1 : (n%100>10 && n%100<20) ? 2 : 3"},
	{Locale: "ar", Forms: formsSixCategories, Expression: "n==0 ? 0 : n==1 ? 1 : n==2 ? 2 : n%100>=3 && n%100<=10 ? 3 : n%100>=11 ? 4 : 5"},
}
