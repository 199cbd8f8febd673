package service

import "fmt"

func welcomeEmailTemplate(timelineURL, appName string) (string, string) {
	subject := fmt.Sprintf("Bienvenue sur %s !", appName)
	body := fmt.Sprintf(`Bonjour,

Votre compte %s est prêt. Votre première frise, « La famille », vous attend :
%s

Ajoutez un premier souvenir, une date, une photo, et laissez l'histoire se dessiner.

À bientôt,
L'équipe %s`, appName, timelineURL, appName)

	return subject, body
}

func premiumEmailTemplate(settingsURL, appName string) (string, string) {
	subject := fmt.Sprintf("%s Premium est activé", appName)
	body := fmt.Sprintf(`Bonjour,

Merci pour votre confiance ! Votre abonnement Premium est actif :
- 5 Go de stockage pour vos photos, vidéos et sons
- l'export de vos frises

Vous pouvez gérer votre abonnement à tout moment depuis vos réglages :
%s

L'équipe %s`, settingsURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(appName string) (string, string) {
	subject := fmt.Sprintf("Votre compte %s a été supprimé", appName)
	body := fmt.Sprintf(`Bonjour,

Votre compte et tous vos souvenirs ont été supprimés, comme demandé.

Si vous n'êtes pas à l'origine de cette demande, répondez simplement à cet e-mail.

L'équipe %s`, appName)

	return subject, body
}
