package extraction

import (
	"fmt"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// instruction is the French prompt the transcript is embedded into.
const instruction = `Vous êtes un assistant pharmacologique qui connaît les noms commerciaux de tous les médicaments commercialisés. Vous analysez la transcription d'une dictée médicale afin de remplir une ordonnance.

Transcription : « %s »

Consignes :
1. Noms des médicaments : identifiez chaque médicament cité et corrigez toute approximation phonétique vers son nom commercial exact (par exemple « dolipran » devient « DOLIPRANE »). Écrivez toujours le nom en MAJUSCULES.
2. Intention :
   - si la transcription commence par « ajouter », « ajoute », « ajoutez » ou « rajouter », l'action est "ADD_MEDICATION" et vous n'extrayez que le médicament à ajouter ;
   - sinon l'action est "REPLACE_ALL" et vous extrayez le nom complet du patient ainsi que la liste complète des médicaments.
3. Posologie : reprenez la posologie dictée pour chaque médicament, ou une chaîne vide si aucune n'est donnée.

Répondez uniquement avec un objet JSON conforme au schéma fourni, sans aucun texte supplémentaire.`

// BuildPrompt embeds transcript into the extraction instruction.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(instruction, transcript)
}

// responseSchema describes the only response shape the service may return.
func responseSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"action": {
				Type:        jsonschema.String,
				Enum:        []string{string(entities.ActionReplaceAll), string(entities.ActionAddMedication)},
				Description: "REPLACE_ALL pour une nouvelle ordonnance, ADD_MEDICATION pour ajouter un médicament.",
			},
			"patientName": {
				Type:        jsonschema.String,
				Description: "Nom complet du patient, uniquement pour REPLACE_ALL.",
			},
			"medications": {
				Type:        jsonschema.Array,
				Description: "Un ou plusieurs médicaments.",
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"name":   {Type: jsonschema.String, Description: "Nom commercial en majuscules."},
						"dosage": {Type: jsonschema.String, Description: "Posologie complète."},
					},
					Required: []string{"name", "dosage"},
				},
			},
		},
		Required: []string{"action", "medications"},
	}
}
