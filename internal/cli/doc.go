// Package cli реализует команды инструмента warden.
//
// # Обзор
//
// CLI — операторский инструмент: отправка работы, просмотр очереди,
// управление расписаниями. Он работает с Postgres напрямую, тем же
// хранилищем, что worker'ы и scheduler. Отдельного API-сервера нет.
//
// Подключения ленивые: база и брокер открываются при первом
// обращении команды, а не при старте процесса. Брокер необязателен
// везде, кроме work watch: submit без брокера лишь не пошлёт
// подсказку worker'ам, работу доберёт поллинг.
//
// # Вывод
//
// Каждая команда пишет данные в stdout, сообщения о ходе — в stderr.
// Флаг --json переключает данные в JSON, удобный для pipe:
//
//	warden work recent --json | jq '.[].id'
package cli
