package service

import (
	"fmt"
	"html"
	"time"

	"intentionsbot/internal/models"
)

// User-facing texts. Messages marked HTML are sent with HTML parse mode and
// must have any user-provided fragment escaped.
const (
	introText = "A paz de Cristo! Sou o bot de intenções anônimas do canal. " +
		"Meu trabalho é encaminhar suas intenções anonimamente aos admins, " +
		"para que eles as avaliem e postem no canal.\n\n" +
		"<b>Por favor, leia atentamente as instruções abaixo.</b>"

	instructionsText = "<b>INSTRUÇÕES DE USO DO BOT</b>\n\n" +
		"1. Apenas envie uma mensagem qualquer aqui na sua conversa privada " +
		"com o bot, e ela será repassada anonimamente para os admins depois da sua confirmação.\n\n" +
		"2. Obs.: caso você cancele o envio de uma intenção porque quer alterar sua intenção, " +
		"não edite a mensagem que você tinha enviado. Envie uma nova mensagem com as correções.\n\n" +
		"3. Use um dos seguintes formatos:\n\n" +
		"• Para intenções anônimas, apenas escreva o conteúdo da sua intenção. " +
		"Se quiser, você pode prefixar sua mensagem com \"Intenção anônima:\", " +
		"mas isso é inteiramente opcional. Exemplos:\n\n" +
		"<pre>Pela saúde do meu pai.</pre>\n" +
		"<pre>Intenção anônima: pela saúde do meu pai.</pre>\n\n" +
		"• Caso você queira se identificar, use um dos seguintes formatos:\n\n" +
		"<pre>Fulano - Pela saúde de Sicrano.</pre>\n" +
		"<pre>Nome: Fulano\n\nIntenção: Pela saúde de Sicrano.</pre>"

	rulesText = "<b>REGRAS DE USO</b>\n\n" +
		"1. Envie <b>apenas texto</b>. O bot não aceita imagens, áudios ou qualquer outro tipo de mídia.\n\n" +
		"2. <b>Nunca coloque nomes completos</b>, a não ser que se trate de um famoso " +
		"(nesse caso, especifique quem é a pessoa).\n\n" +
		"3. Admins têm liberdade total de omitir detalhes da sua intenção se isso for necessário " +
		"para resguardar a identidade das pessoas.\n\n" +
		"4. Admins são livres para arbitrariamente rejeitar intenções, e poderão te avisar " +
		"através do bot por que uma intenção foi rejeitada.\n\n" +
		"5. Admins podem <b>banir</b> você, bloqueando seu acesso ao bot, caso considerem que " +
		"você está fazendo mau uso dele.\n\n" +
		"6. Resultarão em <b>banimento imediato</b> e estão <b>expressamente proibidas</b> intenções que contenham:\n" +
		"   • Indecências.\n" +
		"   • Divulgações.\n" +
		"   • Pedidos de dinheiro.\n" +
		"   • Importunação para com os admins.\n\n" +
		"7. Caso você seja banido, os admins não saberão quem era você. " +
		"Se quiser contestar o banimento, você receberá um código fornecido pelo bot."

	readyText = "🫡 Estou pronto para receber intenções, envie quando quiser. " +
		"Eis aqui formatos prontos para copiar e colar:\n\n" +
		"<pre>Intenção anônima: </pre>\n\n" +
		"<pre>Nome: \n\nIntenção: </pre>"

	readFromHereNewbieText = "☝️ Leia tudo a partir daqui. Quando terminar, é só apertar no botão abaixo."
	readFromHereText       = "☝️ Leia a partir daqui."

	reviewerHelpText = "Para outras ações além de aprovar, responda à mensagem da intenção com um dos seguintes comandos:\n\n" +
		"/reject <code>motivo</code>\n" +
		"/ban <code>motivo</code>\n"
	reviewerHelpFeedbackLine = "/feedback <code>mensagem</code>\n"

	pongText = "Pong."

	pendingGuidanceText = "Confirme ou cancele sua última intenção antes de escrever uma nova. Ou então, selecione o botão abaixo."
	nothingPendingText  = "⚠️ Não há intenção pendente para enviar."
	inactiveText        = "💀 Desculpe, no momento não estou ativado. Reclame com os admins!"
	forwardFailedText   = "⚠️ Não consegui enviar sua intenção agora. Ela continua guardada, tente confirmar de novo em instantes."
	cancelledText       = "❌ Essa intenção foi cancelada."
	rateLimitedText     = "⏳ Você enviou muitas intenções em pouco tempo. Tente novamente mais tarde."

	wrongPasswordText  = "Senha incorreta."
	activatedText      = "Ativado. Vou encaminhar as intenções pra cá."
	deactivatedText    = "Fui desvinculado deste grupo. Envie a senha novamente para me ativar aqui."
	askPasswordText    = "Qual é a senha?"
	backAgainText      = "Opa, estou de volta."
	notActiveGroupText = "Não estou ativo nesse grupo. Cadê a senha?"

	needReasonText      = "Você precisa fornecer um motivo."
	needReplyText       = "Você deve responder à mensagem com a intenção."
	cannotUseReplyText  = "Não posso fazer isso com a mensagem que você respondeu."
	needFeedbackText    = "Você precisa escrever uma mensagem pro usuário."
	needTokenText       = "Forneça o código."
	unknownTokenText    = "Esse código não corresponde a nenhum usuário banido."
	unbannedText        = "O usuário foi desbanido. Se possível, o avise, pois não guardo os ID's de usuários banidos e não tenho como notificá-lo."
	notBannedText       = "Você não está banido. :)"
	rejectedAckText     = "A intenção foi ❌rejeitada e o remetente dela foi notificado com o motivo fornecido."
	feedbackSentText    = "📨 Mensagem enviada!"
	invalidSenderIDText = "⚠️ Erro interno (ID inválido)."
)

// Button labels.
const (
	instructionsLabel = "📖 Instruções & Regras"
	newIntentionLabel = "✍️ Nova intenção"
	confirmLabel      = "✅ Confirmar"
	cancelLabel       = "❌ Cancelar"
	acceptLabel       = "✅ Aceitar"
	otherActionsLabel = "⚙️ Outras ações"
)

func instructionsKeyboard(newbie bool) models.Keyboard {
	data := models.CallbackInstructions
	if newbie {
		data = models.CallbackInstructionsNewbie
	}
	return models.Keyboard{{{Text: instructionsLabel, Data: data}}}
}

func newIntentionKeyboard() models.Keyboard {
	return models.Keyboard{{{Text: newIntentionLabel, Data: models.CallbackNewIntention}}}
}

func confirmKeyboard() models.Keyboard {
	return models.Keyboard{{
		{Text: confirmLabel, Data: models.CallbackConfirmSend},
		{Text: cancelLabel, Data: models.CallbackCancelSend},
	}}
}

// reviewerKeyboard embeds the sender reference into every button so any of
// them can be used to recover it.
func reviewerKeyboard(senderID int64) models.Keyboard {
	return models.Keyboard{{
		{Text: acceptLabel, Data: models.ActionPayload{Action: models.ActionAccept, UserID: senderID}.Encode()},
		{Text: otherActionsLabel, Data: models.ActionPayload{Action: models.ActionActions, UserID: senderID}.Encode()},
	}}
}

func confirmationText(text string) string {
	return "Vou enviar sua intenção da seguinte forma. Confirma?\n\n" + pre(text)
}

func sentText(text string) string {
	return pre(text) + "\n\n—\n\n📨 Essa intenção foi enviada, agora é só aguardar."
}

func bannedNoticeText(token string) string {
	return "Você está banido e não pode usar o bot. Fale com um admin e mostre o código abaixo.\n\n" +
		code(token) + "\n\n" +
		"Para mais informações use o comando: /baninfo"
}

func acceptedSenderText(text string) string {
	return pre(text) + "\n\n✅ A intenção acima foi aceita, confira se ela apareceu no canal."
}

func acceptedReviewerText(name string) string {
	return fmt.Sprintf("✅ Intenção aceita por %s.", name)
}

func rejectedForwardText(text, admin, reason string) string {
	return fmt.Sprintf("%s\n\n—\n\n❌ Intenção rejeitada por %s. Motivo: <i>%s</i>",
		html.EscapeString(text), html.EscapeString(admin), html.EscapeString(reason))
}

func rejectedSenderText(text, reason string) string {
	return pre(text) + "\n\n❌ A intenção acima foi rejeitada.\n\nMotivo: " + italic(reason)
}

func bannedForwardText(text, admin, reason, token string) string {
	return fmt.Sprintf("%s\n\n—\n\n🔨 O remetente desta intenção foi banido por %s. Motivo: <i>%s</i>\n\n%s",
		html.EscapeString(text), html.EscapeString(admin), html.EscapeString(reason), code(token))
}

func bannedSenderText(text, reason, token string) string {
	return pre(text) + "\n\n" +
		"🔨 Você foi banido por causa da intenção acima.\n\n" +
		"Motivo: " + italic(reason) + "\n\n" +
		"Se quiser contestar esse banimento, fale com algum admin pessoalmente. " +
		"Encaminhe para o admin esta mensagem, ele precisará do código abaixo para te desbanir.\n\n" +
		code(token)
}

func bannedReviewerText(token string) string {
	return "O remetente da intenção foi 🔨banido e ele foi notificado com o motivo fornecido. " +
		"Para desbani-lo, use o token abaixo e o comando /unban.\n\n" +
		code(token)
}

func feedbackSenderText(text, message string) string {
	return pre(text) + "\n\n" +
		"📢 Um admin te enviou uma mensagem referente à intenção acima. Leia:\n\n" +
		italic(message)
}

func malformedForwardText(text string) string {
	return text + "\n\n—\n\n" + invalidSenderIDText
}

// banInfoText describes a ban. The self variant adds dispute guidance for
// the banned user.
func banInfoText(rec *models.BanRecord, self bool) string {
	out := "Quando: " + code(formatTimestamp(rec.CreatedAt)) + "\n\n" +
		"Intenção:\n\n" + pre(rec.Intention) + "\n\n" +
		"Motivo:\n\n" + pre(rec.Reason) + "\n\n"
	if self {
		out += "Apresente o código abaixo a um admin para contestar seu banimento. " +
			"De preferência, encaminhe essa mensagem.\n\n"
	}
	return out + code(rec.Token)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func pre(s string) string    { return "<pre>" + html.EscapeString(s) + "</pre>" }
func code(s string) string   { return "<code>" + html.EscapeString(s) + "</code>" }
func italic(s string) string { return "<i>" + html.EscapeString(s) + "</i>" }
