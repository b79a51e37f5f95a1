package ingest

import "github.com/sweetpotato0/ragguard/rag/document"

// SampleDocuments returns a small built-in documentation corpus. It is used
// to bootstrap an empty index so the pipeline can be exercised without any
// external document source.
func SampleDocuments() []document.Document {
	return []document.Document{
		{
			Title: "React 18 Official Docs",
			Content: `# React 18+ Modern Patterns

## Using the ` + "`use`" + ` Hook

The ` + "`use`" + ` hook is a new React hook for handling asynchronous operations in Server Components.

**Important**: The ` + "`use`" + ` hook is designed for Server Components, not Client Components.

For Client Components, continue using:
- ` + "`useEffect`" + ` with ` + "`fetch`" + `
- Data fetching libraries like SWR or React Query
- ` + "`useSWR`" + ` for simple cases

Example for Client Component:
` + "```jsx" + `
import useSWR from 'swr'

function Profile() {
  const { data, error } = useSWR('/api/user', fetch)

  if (error) return <div>Failed to load</div>
  if (!data) return <div>Loading...</div>

  return <div>Hello {data.name}!</div>
}
` + "```",
			Metadata: map[string]any{"source": "React 18 Official Docs", "type": "documentation"},
		},
		{
			Title: "Next.js 15 Documentation",
			Content: `# Next.js 15 App Router

## Client vs Server Components

Server Components run on the server and can directly access databases.
Client Components run in the browser and need to fetch data through APIs.

For data fetching in Client Components:
1. Use ` + "`fetch`" + ` with ` + "`useEffect`" + `
2. Use SWR for caching: ` + "`npm install swr`" + `
3. Use React Query for complex state management

Example with SWR:
` + "```jsx" + `
'use client'
import useSWR from 'swr'

const fetcher = (url) => fetch(url).then(res => res.json())

export default function Posts() {
  const { data, error, isLoading } = useSWR('/api/posts', fetcher)

  if (error) return <div>Failed to load posts</div>
  if (isLoading) return <div>Loading...</div>

  return (
    <ul>
      {data.map(post => (
        <li key={post.id}>{post.title}</li>
      ))}
    </ul>
  )
}
` + "```",
			Metadata: map[string]any{"source": "Next.js 15 Documentation", "type": "documentation"},
		},
		{
			Title: "OpenAI SDK v4 Docs",
			Content: `# OpenAI SDK v4+ Streaming

## New Streaming API

The OpenAI SDK v4 introduced a new streaming API.

` + "```javascript" + `
import OpenAI from 'openai'

const openai = new OpenAI({
  apiKey: process.env.OPENAI_API_KEY,
})

const stream = await openai.chat.completions.create({
  model: 'gpt-4',
  messages: [{ role: 'user', content: 'Hello!' }],
  stream: true,
})

for await (const chunk of stream) {
  process.stdout.write(chunk.choices[0]?.delta?.content || '')
}
` + "```" + `

## React Integration

` + "```jsx" + `
import { useState } from 'react'

function ChatComponent() {
  const [response, setResponse] = useState('')

  const handleStream = async () => {
    const response = await fetch('/api/chat', {
      method: 'POST',
      body: JSON.stringify({ message: 'Hello' })
    })

    const reader = response.body.getReader()
    const decoder = new TextDecoder()

    while (true) {
      const { done, value } = await reader.read()
      if (done) break

      const chunk = decoder.decode(value)
      setResponse(prev => prev + chunk)
    }
  }

  return (
    <div>
      <button onClick={handleStream}>Start Chat</button>
      <div>{response}</div>
    </div>
  )
}
` + "```",
			Metadata: map[string]any{"source": "OpenAI SDK v4 Docs", "type": "documentation"},
		},
		{
			Title: "React Best Practices 2024",
			Content: `# Common React Mistakes in 2024

## Outdated Patterns to Avoid

### 1. Using ` + "`use`" + ` hook in Client Components
**Wrong:**
` + "```jsx" + `
'use client'
import { use } from 'react'

function UserProfile() {
  const user = use(fetchUser()) // This will NOT work in Client Components
  return <div>{user.name}</div>
}
` + "```" + `

**Correct:**
` + "```jsx" + `
'use client'
import { useState, useEffect } from 'react'

function UserProfile() {
  const [user, setUser] = useState(null)

  useEffect(() => {
    fetchUser().then(setUser)
  }, [])

  if (!user) return <div>Loading...</div>
  return <div>{user.name}</div>
}
` + "```" + `

### 2. Old React 17 Patterns
Avoid using class components for new code. Use function components with hooks.

### 3. Deprecated Next.js Patterns
Don't use ` + "`getServerSideProps`" + ` in App Router. Use Server Components instead.`,
			Metadata: map[string]any{"source": "React Best Practices 2024", "type": "best_practices"},
		},
	}
}
