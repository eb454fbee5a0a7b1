// Package queue определяет контракт хранилища WorkItems и его
// встраиваемую in-memory реализацию.
//
// # Обзор
//
// Хранилище — единственный разделяемый мутируемый ресурс системы.
// Все мутации идут через три операции, каждая из которых атомарна
// относительно конкурентных вызовов:
//
//   - ClaimOne  — атомарный захват: PENDING → RUNNING ровно для одного
//     вызывающего; проигравшие видят пустую очередь
//   - Complete  — RUNNING → FINISHED с записью результата
//   - Cancel    — PENDING → CANCELED; после захвата отмена невозможна
//
// Порядок выдачи items не гарантируется: ClaimOne может вернуть любой
// PENDING item, FIFO-поведение не является частью контракта.
//
// # Реализации
//
//   - MemoryStore (этот пакет) — для тестов и встраиваемого режима,
//     когда producer и worker живут в одном процессе
//   - repo.WorkItemRepo — Postgres, захват через FOR UPDATE SKIP LOCKED
package queue
