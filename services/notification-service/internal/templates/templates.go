// Package templates renders the pt-BR notification copy.
package templates

import (
	"fmt"
	"html"
)

type Session struct {
	PatientName string
	Date        string
	Time        string
}

func BookingConfirmationSubject() string {
	return "Agendamento confirmado - TRG Nexus"
}

func BookingConfirmationBody(s Session) string {
	return fmt.Sprintf(
		"<h2>Agendamento Confirmado!</h2>"+
			"<p>Olá %s,</p>"+
			"<p>Sua sessão de TRG foi agendada para <strong>%s</strong> às <strong>%s</strong>.</p>"+
			"<p>Até breve!</p>",
		html.EscapeString(s.PatientName), s.Date, s.Time,
	)
}

func ReminderSubject() string {
	return "Lembrete: sua sessão é amanhã - TRG Nexus"
}

func ReminderBody(s Session) string {
	return fmt.Sprintf(
		"<h2>Lembrete de Sessão</h2>"+
			"<p>Olá %s,</p>"+
			"<p>Sua sessão de TRG está marcada para <strong>%s</strong> às <strong>%s</strong>.</p>"+
			"<p>Caso precise remarcar, entre em contato com seu terapeuta.</p>",
		html.EscapeString(s.PatientName), s.Date, s.Time,
	)
}

func ReminderText(s Session) string {
	return fmt.Sprintf("Lembrete TRG Nexus: sua sessão está marcada para %s às %s.", s.Date, s.Time)
}

func ReferralSubject() string {
	return "Novo encaminhamento recebido - TRG Nexus"
}

func ReferralBody(patientName string, specialty string) string {
	body := fmt.Sprintf(
		"<h2>Novo Encaminhamento</h2>"+
			"<p>Você recebeu um novo paciente encaminhado: <strong>%s</strong>.</p>",
		html.EscapeString(patientName),
	)
	if specialty != "" {
		body += fmt.Sprintf("<p>Especialidade: %s</p>", html.EscapeString(specialty))
	}
	body += "<p>Acesse o painel para aceitar o encaminhamento.</p>"
	return body
}
