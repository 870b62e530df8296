// Package l10n maps l10n-style keys to display strings.
//
// The editor only needs a handful of strings: the prefix for unnamed stages
// and the texts of the removal confirmation. [Default] holds English texts;
// [Dictionary.Merge] overlays translations loaded from configuration.
package l10n

// Keys used by the editor.
const (
	KeyUnnamedStage          = "l10n.unnamedStage"
	KeyContentRequired       = "l10n.contentRequired"
	KeyRemoveDialogHeader    = "l10n.confirmationDialogRemoveHeader"
	KeyRemoveDialogText      = "l10n.confirmationDialogRemoveDialog"
	KeyRemoveDialogCancel    = "l10n.confirmationDialogRemoveCancel"
	KeyRemoveDialogConfirm   = "l10n.confirmationDialogRemoveConfirm"
	KeyNoNeighborsAvailable  = "l10n.noNeighborsAvailable"
	KeyNeighborsInstructions = "l10n.neighborsInstructions"
)

// Dictionary is a flat key to text map. Missing keys resolve to the key itself.
type Dictionary map[string]string

// Default returns the built-in English dictionary.
func Default() Dictionary {
	return Dictionary{
		KeyUnnamedStage:          "Unnamed stage",
		KeyContentRequired:       "Please choose a content type.",
		KeyRemoveDialogHeader:    "Remove stage?",
		KeyRemoveDialogText:      "Do you really want to remove this stage? Its paths will be removed, too.",
		KeyRemoveDialogCancel:    "Cancel",
		KeyRemoveDialogConfirm:   "Remove stage",
		KeyNoNeighborsAvailable:  "There are no other stages to connect to.",
		KeyNeighborsInstructions: "Select the stages this stage is connected to.",
	}
}

// Get returns the text for key, or key when it is unknown.
func (d Dictionary) Get(key string) string {
	if v, ok := d[key]; ok && v != "" {
		return v
	}
	return key
}

// Merge returns a copy of d with the entries of other applied on top.
// Keys in other may omit the "l10n." prefix.
func (d Dictionary) Merge(other map[string]string) Dictionary {
	out := make(Dictionary, len(d)+len(other))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range other {
		if len(k) < 5 || k[:5] != "l10n." {
			k = "l10n." + k
		}
		out[k] = v
	}
	return out
}
