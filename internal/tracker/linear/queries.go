package linear

// GraphQL documents for the Linear API.

const issueFields = `
  id
  identifier
  title
  description
  url
  createdAt
  updatedAt
  state {
    id
    name
    type
  }
  team {
    id
    name
    key
  }
  assignee {
    id
    name
    email
  }
  labels {
    nodes {
      id
      name
      color
    }
  }
`

const queryIssue = `
query Issue($id: String!) {
  issue(id: $id) {` + issueFields + `}
}
`

const queryIssueSearch = `
query IssueSearch($query: String!) {
  issueSearch(query: $query, first: 10) {
    nodes {` + issueFields + `}
  }
}
`

const queryWorkspace = `
query Workspace {
  viewer {
    organization {
      id
      name
      urlKey
    }
  }
}
`

const queryTeams = `
query Teams {
  teams(first: 100) {
    nodes {
      id
      name
      key
    }
  }
}
`

const queryComments = `
query Comments($id: String!) {
  issue(id: $id) {
    comments {
      nodes {
        id
        body
        createdAt
        user {
          id
          name
          email
        }
      }
    }
  }
}
`

const mutationCommentCreate = `
mutation CommentCreate($issueId: String!, $body: String!) {
  commentCreate(input: { issueId: $issueId, body: $body }) {
    success
    comment {
      id
      body
      createdAt
      user {
        id
        name
        email
      }
    }
  }
}
`

const mutationIssueUpdate = `
mutation IssueUpdate($id: String!, $stateId: String!) {
  issueUpdate(id: $id, input: { stateId: $stateId }) {
    success
  }
}
`
