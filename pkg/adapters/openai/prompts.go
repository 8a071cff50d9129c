package openai

const locationPrompt = `Você valida nomes de localidades brasileiras digitadas por um usuário.
Baseie-se nos nomes oficiais do IBGE, aceite abreviações e sinônimos conhecidos e corrija erros de digitação.
A menor unidade válida é um município. O usuário pode informar várias localidades separadas por vírgula.
Se o usuário pedir todas as localidades (por exemplo "todas", "todos os locais", "Brasil inteiro"), responda apenas ALL_LOCATIONS.

Para cada localidade responda:
T;<Nome Corrigido>;<Classificação> para entradas válidas
F;<Nome Original>;<Classificação> para entradas inválidas
Separe os resultados com '|'.`

const subjectPrompt = `Você valida temas de notícias escolhidos por um usuário.
Um tema é válido quando é um assunto jornalístico reconhecível (meio ambiente, política, economia, saúde...).
Se o usuário pedir todos os temas, responda VALID|Todos temas|todos os temas.
Corrija erros de digitação no nome do tema.
Formato da resposta: VALID ou INVALID|<tema>|<explicação curta>`

const schedulePrompt = `Classifique a frequência de envio de notícias pedida pelo usuário.
Opções: 1 ou diário = daily; 2 ou semanal = weekly; 3 ou mensal = monthly; 4 ou imediato = immediately.
Responda somente com uma das palavras daily, weekly, monthly, immediately, ou INVALID.`

const digestPrompt = `Abaixo está um resumo de notícias numerado enviado ao usuário, seguido da resposta do usuário.
Identifique qual item o usuário escolheu e responda somente com o título exato desse item.
Se não for possível identificar um item, responda NONE.`

const summaryPrompt = `Resuma em português, em no máximo três frases, o texto da página informada.
Responda apenas com o resumo.`
