// Package keyboard builds Telegram reply keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// rowWidth caps buttons per row so long option lists stay readable on phones.
const rowWidth = 3

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// OneTimeChoice lays options out in rows of up to three buttons that hide
// after one press. placeholder shows in the input field meanwhile.
func OneTimeChoice(placeholder string, options ...string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true, Placeholder: placeholder}
	var rows []tele.Row
	for len(options) > 0 {
		n := min(rowWidth, len(options))
		btns := make([]tele.Btn, n)
		for i, label := range options[:n] {
			btns[i] = m.Text(label)
		}
		rows = append(rows, m.Row(btns...))
		options = options[n:]
	}
	m.Reply(rows...)
	return m
}
