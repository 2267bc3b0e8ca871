package critique

import "handrating-backend/internal/models"

const defaultLanguage = models.LanguageEnglish

var prompts = map[string]string{
	models.LanguageEnglish: `You are an experienced hand model casting director. Analyze the hand in this photo and assess whether this person can become a hand model.

Start your critique with a clear YES or NO answer, then give detailed reasoning covering different aspects.

Respond ONLY with JSON in exactly this format:
{
  "score": [number between 1-100],
  "critique": "[6-8 sentences covering hand shape, skin condition, nail appearance, proportions, commercial potential and an overall assessment. Be specific. Do not use emojis.]",
  "strengths": ["strength 1", "strength 2", "strength 3", "strength 4", "strength 5"],
  "improvements": ["improvement 1", "improvement 2", "improvement 3", "improvement 4", "improvement 5"],
  "verdict": "[short verdict]"
}

Keep strengths and improvements concise, exactly 5 of each. Avoid generic phrases.`,

	models.LanguageSpanish: `Eres un director de casting de modelos de manos con experiencia. Analiza la mano de esta foto y evalúa si esta persona puede convertirse en modelo de manos.

Comienza la crítica con una respuesta clara SÍ o NO y luego da un razonamiento detallado que cubra distintos aspectos.

Responde SOLO con JSON exactamente en este formato:
{
  "score": [número entre 1-100],
  "critique": "[6-8 oraciones sobre forma de la mano, condición de la piel, apariencia de las uñas, proporciones, potencial comercial y evaluación general. Sé específico. No uses emojis.]",
  "strengths": ["fortaleza 1", "fortaleza 2", "fortaleza 3", "fortaleza 4", "fortaleza 5"],
  "improvements": ["mejora 1", "mejora 2", "mejora 3", "mejora 4", "mejora 5"],
  "verdict": "[veredicto breve]"
}

Mantén fortalezas y mejoras concisas, exactamente 5 de cada una. Escribe todo en español.`,

	models.LanguageFrench: `Vous êtes un directeur de casting expérimenté pour mannequins de mains. Analysez la main sur cette photo et évaluez si cette personne peut devenir mannequin de mains.

Commencez la critique par une réponse claire OUI ou NON, puis donnez un raisonnement détaillé couvrant différents aspects.

Répondez UNIQUEMENT en JSON exactement dans ce format :
{
  "score": [nombre entre 1-100],
  "critique": "[6-8 phrases sur la forme de la main, l'état de la peau, l'apparence des ongles, les proportions, le potentiel commercial et une évaluation globale. Soyez précis. Pas d'emojis.]",
  "strengths": ["force 1", "force 2", "force 3", "force 4", "force 5"],
  "improvements": ["amélioration 1", "amélioration 2", "amélioration 3", "amélioration 4", "amélioration 5"],
  "verdict": "[verdict court]"
}

Gardez les forces et améliorations concises, exactement 5 de chaque. Écrivez tout en français.`,
}

var answers = map[string][2]string{
	models.LanguageEnglish: {"YES, you can become a hand model", "NO, you cannot become a hand model"},
	models.LanguageSpanish: {"SÍ, puedes convertirte en modelo de manos", "NO, no puedes convertirte en modelo de manos"},
	models.LanguageFrench:  {"OUI, vous pouvez devenir mannequin de mains", "NON, vous ne pouvez pas devenir mannequin de mains"},
}

// NormalizeLanguage returns lang when supported, English otherwise.
func NormalizeLanguage(lang string) string {
	if _, ok := prompts[lang]; ok {
		return lang
	}
	return defaultLanguage
}

// Prompt returns the vision-model instruction for the language.
func Prompt(lang string) string {
	return prompts[NormalizeLanguage(lang)]
}

// Answer returns the localized yes/no sentence for the score.
func Answer(score int, lang string) string {
	a := answers[NormalizeLanguage(lang)]
	if IsYes(score) {
		return a[0]
	}
	return a[1]
}

// IsYes reports whether the score is high enough to say yes.
func IsYes(score int) bool {
	return score >= yesThreshold
}
